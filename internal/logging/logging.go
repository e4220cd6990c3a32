// Package logging opens the per-process log files of an assignment run.
//
// Every process writes an info log and a debug log into the output
// directory, named with the same process suffix as its pathset file, so a
// run with two workers leaves info.log, info_worker01.log, info_worker02.log
// and the matching debug logs behind. Processes never write to each other's
// files.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// InfoFile returns the info log name for a process suffix.
func InfoFile(processSuffix string) string {
	return fmt.Sprintf("info%s.log", processSuffix)
}

// DebugFile returns the debug log name for a process suffix.
func DebugFile(processSuffix string) string {
	return fmt.Sprintf("debug%s.log", processSuffix)
}

// RunLog is one process's pair of log files. The debug file receives
// everything the info file does plus Debugf lines. A nil RunLog discards
// everything, so callers can log unconditionally.
type RunLog struct {
	info  *os.File
	debug *os.File
	out   io.Writer
}

// Open creates the log files for one process in outputDir. With appendLog
// set, existing files are extended instead of truncated. With console set,
// info lines are mirrored to stderr; workers run without it so only the
// primary talks to the terminal.
func Open(outputDir, processSuffix string, appendLog, console bool) (*RunLog, error) {
	flags := os.O_CREATE | os.O_WRONLY
	if appendLog {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}

	info, err := os.OpenFile(filepath.Join(outputDir, InfoFile(processSuffix)), flags, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open info log: %w", err)
	}
	debug, err := os.OpenFile(filepath.Join(outputDir, DebugFile(processSuffix)), flags, 0644)
	if err != nil {
		info.Close()
		return nil, fmt.Errorf("failed to open debug log: %w", err)
	}

	l := &RunLog{info: info, debug: debug}
	if console {
		l.out = io.MultiWriter(info, debug, os.Stderr)
	} else {
		l.out = io.MultiWriter(info, debug)
	}
	return l, nil
}

// Writer returns the destination for info-level output. Commands point the
// standard logger here with log.SetOutput so every package's log lines land
// in the run's files.
func (l *RunLog) Writer() io.Writer {
	if l == nil {
		return io.Discard
	}
	return l.out
}

// Debugf writes a timestamped line to the debug file only.
func (l *RunLog) Debugf(format string, args ...any) {
	if l == nil {
		return
	}
	fmt.Fprintf(l.debug, "%s DEBUG %s\n", time.Now().Format("2006/01/02 15:04:05"), fmt.Sprintf(format, args...))
}

func (l *RunLog) Close() error {
	if l == nil {
		return nil
	}
	err1 := l.info.Close()
	err2 := l.debug.Close()
	if err1 != nil {
		return err1
	}
	return err2
}
