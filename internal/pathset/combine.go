package pathset

import (
	"bufio"
	"cmp"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
)

// Row is one pathset row. Fields holds the raw tokens exactly as they
// appeared in the worker file; Iteration and TripListIDNum are parsed out of
// them because merging sorts on the pair.
type Row struct {
	Iteration     int
	TripListIDNum int
	Fields        []string
}

// RowError reports a malformed pathset file.
type RowError struct {
	File   string
	Line   int
	Reason string
}

func (e *RowError) Error() string {
	return fmt.Sprintf("pathset %s:%d: %s", e.File, e.Line, e.Reason)
}

// CombineStats reports what one Combine call did.
type CombineStats struct {
	FilesMerged int
	RowsMerged  int
	// Orphans are worker files left behind beyond the first missing
	// ordinal. They are never read or deleted, only reported.
	Orphans []string
}

// Combine merges the worker pathset files in outputDir into the canonical
// pathset.txt. Worker files are scanned from ordinal 1 upward and the scan
// stops at the first missing ordinal, which is how a completed run normally
// looks once every worker has exited. Each file found is read fully and then
// deleted, so calling Combine again is a no-op. The merged rows are sorted
// by (iteration, trip_list_id_num), ties keeping their scan order, and the
// canonical file is rewritten only when at least one worker file was found.
func Combine(outputDir string) (*CombineStats, error) {
	stats := &CombineStats{}
	var rows []Row

	for n := 1; ; n++ {
		path := filepath.Join(outputDir, Filename(WorkerSuffix(n)))
		fileRows, err := ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			break
		}
		if err != nil {
			return nil, err
		}
		if err := os.Remove(path); err != nil {
			return nil, fmt.Errorf("failed to remove merged pathset file: %w", err)
		}
		log.Printf("Read %d pathset rows from %s", len(fileRows), filepath.Base(path))
		rows = append(rows, fileRows...)
		stats.FilesMerged++
		stats.RowsMerged += len(fileRows)
	}

	stats.Orphans = findOrphans(outputDir)
	for _, name := range stats.Orphans {
		log.Printf("WARNING: pathset file %s not merged: earlier worker file missing", name)
	}

	if stats.FilesMerged == 0 {
		return stats, nil
	}

	slices.SortStableFunc(rows, func(a, b Row) int {
		if c := cmp.Compare(a.Iteration, b.Iteration); c != 0 {
			return c
		}
		return cmp.Compare(a.TripListIDNum, b.TripListIDNum)
	})

	if err := writeCanonical(outputDir, rows); err != nil {
		return nil, err
	}
	log.Printf("Wrote %d pathset rows from %d files to %s", stats.RowsMerged, stats.FilesMerged, Filename(""))
	return stats, nil
}

// ReadFile parses one pathset file. The file must open with the canonical
// header; every data row must carry one token per column with integer
// iteration and trip_list_id_num.
func ReadFile(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to open pathset file: %w", err)
	}
	defer f.Close()

	name := filepath.Base(path)
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return nil, fmt.Errorf("failed to read pathset file: %w", err)
		}
		return nil, &RowError{File: name, Line: 1, Reason: "missing header"}
	}
	if got := strings.Join(strings.Fields(sc.Text()), " "); got != Header {
		return nil, &RowError{File: name, Line: 1, Reason: fmt.Sprintf("unexpected header %q", got)}
	}

	var rows []Row
	line := 1
	for sc.Scan() {
		line++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) != NumColumns {
			return nil, &RowError{
				File: name, Line: line,
				Reason: fmt.Sprintf("%d fields, want %d", len(fields), NumColumns),
			}
		}
		iter, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, &RowError{File: name, Line: line, Reason: fmt.Sprintf("bad iteration %q", fields[0])}
		}
		tripList, err := strconv.Atoi(fields[2])
		if err != nil {
			return nil, &RowError{File: name, Line: line, Reason: fmt.Sprintf("bad trip_list_id_num %q", fields[2])}
		}
		rows = append(rows, Row{Iteration: iter, TripListIDNum: tripList, Fields: fields})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read pathset file: %w", err)
	}
	return rows, nil
}

// findOrphans lists worker pathset files still present after the scan.
func findOrphans(outputDir string) []string {
	matches, err := filepath.Glob(filepath.Join(outputDir, Filename("_worker*")))
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, filepath.Base(m))
	}
	slices.Sort(names)
	return names
}

func writeCanonical(outputDir string, rows []Row) error {
	path := filepath.Join(outputDir, Filename(""))
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create pathset file: %w", err)
	}
	w := bufio.NewWriter(f)
	fmt.Fprintln(w, Header)
	for _, r := range rows {
		fmt.Fprintln(w, strings.Join(r.Fields, " "))
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("failed to write pathset file: %w", err)
	}
	return f.Close()
}
