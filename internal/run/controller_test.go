package run

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bricegnichols/fast-trips/internal/assign"
	"github.com/bricegnichols/fast-trips/internal/config"
	"github.com/bricegnichols/fast-trips/internal/model"
	"github.com/bricegnichols/fast-trips/internal/pathset"
	"github.com/bricegnichols/fast-trips/internal/perf"
)

func writeFixture(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}
	return dir
}

func fixtureDirs(t *testing.T) (network, demand string) {
	t.Helper()
	network = writeFixture(t, map[string]string{
		"run.yaml":   "reference_date: 2016-03-07\nworkers: 2\n",
		"routes.txt": "route_id,route_type\nB1,3\n",
		"stops.txt":  "stop_id,stop_name\nS1,First\nS2,Second\n",
		"trips.txt":  "trip_id,route_id,service_id\nT1,B1,WKDY\n",
		"stop_times.txt": "trip_id,arrival_time,departure_time,stop_id,stop_sequence\n" +
			"T1,08:00:00,08:00:00,S1,1\n" +
			"T1,08:10:00,08:10:00,S2,2\n",
		"zones.txt":        "taz_id\nZ1\n",
		"access_links.txt": "taz_id,stop_id,mode,time_min\nZ1,S1,walk,5\n",
	})
	demand = writeFixture(t, map[string]string{
		"trip_list.txt": "person_id,trip_list_id_num,origin_stop_id,destination_stop_id,time_target,preferred_time\n" +
			"alice,1,S1,S2,departure,08:00:00\n",
	})
	return network, demand
}

func readConfig(t *testing.T, network, demand string) *config.Run {
	t.Helper()
	cfg, err := config.Read(network, demand)
	require.NoError(t, err)
	return cfg
}

// fileWritingEngine leaves worker pathset files behind like a real engine.
func fileWritingEngine(t *testing.T, rows map[int][]string) assign.EngineFunc {
	return func(ctx context.Context, outputDir string, m *model.Model) error {
		for n, fileRows := range rows {
			require.NoError(t, pathset.Initialize(outputDir, pathset.WorkerSuffix(n), false))
			path := filepath.Join(outputDir, pathset.Filename(pathset.WorkerSuffix(n)))
			f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
			require.NoError(t, err)
			for _, r := range fileRows {
				_, err = f.WriteString(r + "\n")
				require.NoError(t, err)
			}
			require.NoError(t, f.Close())
		}
		return nil
	}
}

func TestRunHappyPath(t *testing.T) {
	network, demand := fixtureDirs(t)
	out := filepath.Join(t.TempDir(), "output")

	engine := fileWritingEngine(t, map[int][]string{
		1: {"1 1 2 10.0 0.5 S1 T1 S2"},
		2: {"1 2 1 12.0 0.5 S1 T1 S2"},
	})
	c := New(readConfig(t, network, demand), network, demand, engine)

	require.NoError(t, c.Run(context.Background(), out))
	assert.Equal(t, PerformanceWritten, c.State())

	require.NotNil(t, c.Model())
	assert.Len(t, c.Model().Passengers, 1)

	stats := c.CombineStats()
	require.NotNil(t, stats)
	assert.Equal(t, 2, stats.FilesMerged)
	assert.Equal(t, 2, stats.RowsMerged)

	data, err := os.ReadFile(filepath.Join(out, "pathset.txt"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, pathset.Header, lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "1 2 1 "), "rows must be sorted by trip_list_id_num")

	report, err := os.ReadFile(filepath.Join(out, perf.ReportFile))
	require.NoError(t, err)
	reportLines := strings.Split(strings.TrimSpace(string(report)), "\n")
	require.Len(t, reportLines, 4, "header plus one row per step")
	assert.True(t, strings.HasPrefix(reportLines[1], "build_model,1,"))
	assert.True(t, strings.HasPrefix(reportLines[2], "assignment,1,"))
	assert.True(t, strings.HasPrefix(reportLines[3], "combine_pathsets,1,"))

	assert.NoFileExists(t, filepath.Join(out, pathset.Filename(pathset.WorkerSuffix(1))))
	assert.NoFileExists(t, filepath.Join(out, pathset.Filename(pathset.WorkerSuffix(2))))
}

func TestRunTruncatesStaleCanonicalFile(t *testing.T) {
	network, demand := fixtureDirs(t)
	out := t.TempDir()
	stale := pathset.Header + "\n9 9 9 9.0 9.0 X Y Z\n"
	require.NoError(t, os.WriteFile(filepath.Join(out, "pathset.txt"), []byte(stale), 0644))

	engine := fileWritingEngine(t, map[int][]string{1: {"1 1 1 10.0 1.0 S1 T1 S2"}})
	c := New(readConfig(t, network, demand), network, demand, engine)
	require.NoError(t, c.Run(context.Background(), out))

	data, err := os.ReadFile(filepath.Join(out, "pathset.txt"))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "9 9 9", "stale rows must not survive a fresh run")
	assert.Contains(t, string(data), "1 1 1 10.0 1.0")
}

func TestRunObservesStateDuringAssignment(t *testing.T) {
	network, demand := fixtureDirs(t)

	var seen State
	var modelAtRun *model.Model
	c := New(readConfig(t, network, demand), network, demand, nil)
	c.engine = assign.EngineFunc(func(ctx context.Context, outputDir string, m *model.Model) error {
		seen = c.State()
		modelAtRun = m
		return nil
	})

	require.NoError(t, c.Run(context.Background(), t.TempDir()))
	assert.Equal(t, AssignmentRunning, seen)
	require.NotNil(t, modelAtRun)
	assert.NotNil(t, modelAtRun.Passengers, "engine must see the primary model")
}

func TestRunEngineFailureStopsPipeline(t *testing.T) {
	network, demand := fixtureDirs(t)
	out := t.TempDir()

	boom := assign.EngineFunc(func(ctx context.Context, outputDir string, m *model.Model) error {
		require.NoError(t, pathset.Initialize(outputDir, pathset.WorkerSuffix(1), false))
		return context.DeadlineExceeded
	})
	c := New(readConfig(t, network, demand), network, demand, boom)

	err := c.Run(context.Background(), out)
	require.Error(t, err)
	assert.Equal(t, Failed, c.State())
	assert.Nil(t, c.CombineStats())

	assert.FileExists(t, filepath.Join(out, pathset.Filename(pathset.WorkerSuffix(1))),
		"combine must not run after a failed assignment")
	assert.NoFileExists(t, filepath.Join(out, perf.ReportFile))
}

func TestRunBuildFailure(t *testing.T) {
	network, _ := fixtureDirs(t)
	demand := writeFixture(t, map[string]string{
		"trip_list.txt": "person_id,trip_list_id_num,origin_stop_id,destination_stop_id,time_target,preferred_time\n" +
			"alice,1,S1,NOPE,departure,08:00:00\n",
	})

	c := New(readConfig(t, network, demand), network, demand, assign.EngineFunc(
		func(ctx context.Context, outputDir string, m *model.Model) error {
			t.Fatal("engine must not run when the build fails")
			return nil
		}))

	err := c.Run(context.Background(), t.TempDir())
	var ierr *model.IntegrityError
	require.ErrorAs(t, err, &ierr)
	assert.Equal(t, Failed, c.State())
	assert.Nil(t, c.Model())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "not_started", NotStarted.String())
	assert.Equal(t, "performance_written", PerformanceWritten.String())
	assert.Equal(t, "failed", Failed.String())
}
