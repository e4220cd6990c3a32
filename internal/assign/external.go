package assign

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/bricegnichols/fast-trips/internal/model"
	"github.com/bricegnichols/fast-trips/internal/pathset"
)

// ExternalEngine launches one worker process per ordinal and waits for all
// of them. Workers learn their identity and directories from FT_* variables
// in their environment and are expected to append rows to their own pathset
// file, which the engine initializes before spawning anything.
type ExternalEngine struct {
	// Command is the worker argv. Required when Workers > 0.
	Command []string

	// Workers is the number of processes to launch, each with its own
	// two-digit ordinal starting at 01. Zero means the engine has nothing
	// to do and Run returns immediately.
	Workers int

	// Stdout and Stderr receive the workers' output. Both default to the
	// parent's stderr.
	Stdout io.Writer
	Stderr io.Writer
}

// Run spawns all workers concurrently and returns the first failure, after
// every worker has exited. A failing worker cancels the rest.
func (e *ExternalEngine) Run(ctx context.Context, outputDir string, m *model.Model) error {
	if e.Workers <= 0 {
		log.Printf("No workers configured; skipping assignment")
		return nil
	}
	if len(e.Command) == 0 {
		return errors.New("no engine command configured")
	}

	for n := 1; n <= e.Workers; n++ {
		if err := pathset.Initialize(outputDir, pathset.WorkerSuffix(n), false); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	for n := 1; n <= e.Workers; n++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			if err := e.runWorker(ctx, outputDir, m, n); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
					cancel()
				}
				mu.Unlock()
			}
		}(n)
	}
	wg.Wait()
	return firstErr
}

func (e *ExternalEngine) runWorker(ctx context.Context, outputDir string, m *model.Model, n int) error {
	cmd := exec.CommandContext(ctx, e.Command[0], e.Command[1:]...)
	cmd.Env = append(os.Environ(), workerEnv(outputDir, m, n)...)
	cmd.Stdout = e.Stdout
	cmd.Stderr = e.Stderr
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stderr
	}
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}

	log.Printf("Starting worker %02d: %s", n, strings.Join(e.Command, " "))
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("worker %02d: %w", n, err)
	}
	log.Printf("Worker %02d finished", n)
	return nil
}

// workerEnv builds the FT_* environment a worker reads its assignment from.
func workerEnv(outputDir string, m *model.Model, n int) []string {
	iterations := 1
	if m.Config != nil {
		iterations = m.Config.Iterations
	}
	return []string{
		fmt.Sprintf("FT_WORKER=%02d", n),
		"FT_OUTPUT_DIR=" + outputDir,
		"FT_NETWORK_DIR=" + m.NetworkDir,
		"FT_DEMAND_DIR=" + m.DemandDir,
		fmt.Sprintf("FT_ITERATIONS=%d", iterations),
	}
}
