// Package pathset manages the per-process pathset log files an assignment
// run produces and merges them into one canonical file.
//
// Every process appends rows to its own file in the shared output
// directory: the primary to pathset.txt, worker N to pathset_workerNN.txt.
// Coordination happens purely through the filesystem; no process ever opens
// another process's file while the run is going.
package pathset

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Header is the fixed column header of every pathset file. Rows carry one
// whitespace-separated token per column; the three *_stops and path_trips
// columns hold comma-joined sequences.
const Header = "iteration passenger_id_num trip_list_id_num path_cost path_probability path_board_stops path_trips path_alight_stops"

// NumColumns is the number of tokens in a pathset row.
var NumColumns = len(strings.Fields(Header))

// Filename returns the pathset file name for a process suffix. The primary
// process uses the empty suffix.
func Filename(processSuffix string) string {
	return fmt.Sprintf("pathset%s.txt", processSuffix)
}

// WorkerSuffix returns the process suffix of worker n, counted from 1.
func WorkerSuffix(n int) string {
	return fmt.Sprintf("_worker%02d", n)
}

// Initialize creates the pathset file for one process, truncating anything
// already there, and writes the header line. With appendLog set it does
// nothing so a later run can extend the rows already on disk.
func Initialize(outputDir, processSuffix string, appendLog bool) error {
	if appendLog {
		return nil
	}
	path := filepath.Join(outputDir, Filename(processSuffix))
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create pathset file: %w", err)
	}
	if _, err := f.WriteString(Header + "\n"); err != nil {
		f.Close()
		return fmt.Errorf("failed to write pathset header: %w", err)
	}
	return f.Close()
}
