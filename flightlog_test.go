package flightlog_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mendikup/flightlog"
	"github.com/mendikup/flightlog/internal/testbin"
	"github.com/mendikup/flightlog/record"
	"github.com/mendikup/flightlog/storage/pebbledb"
)

func collect(t *testing.T, path string, opts ...flightlog.Option) ([]record.Record, []record.Warning) {
	t.Helper()
	result, err := flightlog.New(path, opts...).Run(context.Background())
	require.NoError(t, err)
	defer result.Close()

	var records []record.Record
	for rec := range result.Records {
		records = append(records, rec)
	}
	return records, result.Warnings
}

// sameRecords compares two decodes field by field, ignoring the
// segment index, which depends on the worker count.
func sameRecords(t *testing.T, want, got []record.Record) {
	t.Helper()
	require.Equal(t, len(want), len(got))
	for i := range want {
		assert.Equal(t, want[i].Type, got[i].Type, "record %d", i)
		assert.Equal(t, want[i].TimeUS, got[i].TimeUS, "record %d", i)
		assert.Equal(t, want[i].Offset, got[i].Offset, "record %d", i)
		require.Equal(t, want[i].Fields.Keys(), got[i].Fields.Keys(), "record %d", i)
		for _, key := range want[i].Fields.Keys() {
			wv, _ := want[i].Get(key)
			gv, _ := got[i].Get(key)
			assert.Equal(t, wv, gv, "record %d field %s", i, key)
		}
	}
}

func TestRun_MergesOutOfOrderTimestamps(t *testing.T) {
	path := testbin.New().
		FMT(0x10, 11, "GPS", "Q", "TimeUS").
		Frame(0x10, testbin.U64(100)).
		Frame(0x10, testbin.U64(50)).
		WriteFile(t)

	records, warnings := collect(t, path, flightlog.WithWorkers(2))
	require.Empty(t, warnings)
	require.Len(t, records, 2)
	assert.Equal(t, uint64(50), records[0].TimeUS)
	assert.Equal(t, uint64(100), records[1].TimeUS)
}

func TestRun_BootstrapOnlyFile(t *testing.T) {
	path := testbin.New().
		FMT(0x10, 11, "GPS", "Q", "TimeUS").
		WriteFile(t)

	records, warnings := collect(t, path)
	assert.Empty(t, records)
	assert.Empty(t, warnings)
}

func TestRun_UnknownTypeWarning(t *testing.T) {
	path := testbin.New().
		FMT(0x11, 11, "IMU", "Q", "TimeUS").
		Frame(0x11, testbin.U64(10)).
		Frame(0x42, make([]byte, 17)).
		Frame(0x11, testbin.U64(20)).
		WriteFile(t)

	records, warnings := collect(t, path, flightlog.WithWorkers(1))
	require.Len(t, records, 2)
	require.Len(t, warnings, 1)
	assert.Equal(t, record.KindUnknownType, warnings[0].Kind)
	assert.Equal(t, int64(100), warnings[0].Offset)
}

func TestRun_Filter(t *testing.T) {
	path := testbin.New().
		FMT(0x10, 11, "GPS", "Q", "TimeUS").
		FMT(0x11, 11, "IMU", "Q", "TimeUS").
		Frame(0x10, testbin.U64(5)).
		Frame(0x11, testbin.U64(5)).
		Frame(0x10, testbin.U64(6)).
		WriteFile(t)

	records, warnings := collect(t, path, flightlog.WithFilter("GPS"))
	require.Empty(t, warnings)
	require.Len(t, records, 2)
	for _, rec := range records {
		assert.Equal(t, "GPS", rec.Type)
	}
	assert.Equal(t, uint64(5), records[0].TimeUS)
	assert.Equal(t, uint64(6), records[1].TimeUS)
}

func TestRun_ScaledAndRounded(t *testing.T) {
	build := func() *testbin.Builder {
		return testbin.New().
			FMT(0x20, 7, "POS", "L", "Lat").
			FMT(0x10, 11, "GPS", "Q", "TimeUS").
			Frame(0x10, testbin.U64(1)).
			Frame(0x20, testbin.I32(123456789))
	}

	records, _ := collect(t, build().WriteFile(t), flightlog.WithWorkers(1))
	require.Len(t, records, 2)
	lat, _ := records[1].Get("Lat")
	assert.InDelta(t, 12.3456789, lat, 1e-12)

	records, _ = collect(t, build().WriteFile(t), flightlog.WithWorkers(1), flightlog.WithRoundFloats(true))
	lat, _ = records[1].Get("Lat")
	assert.Equal(t, 12.3457, lat)
}

// largeLog builds a log big enough to split across many workers, with
// interleaved types and deliberately colliding timestamps.
func largeLog(t *testing.T) string {
	b := testbin.New().
		FMT(0x10, 15, "GPS", "Qf", "TimeUS,Alt").
		FMT(0x11, 11, "IMU", "Q", "TimeUS")
	for i := 0; i < 500; i++ {
		ts := uint64(1000 + (i/4)*10) // every 4 frames share a timestamp
		if i%2 == 0 {
			b.Frame(0x10, testbin.U64(ts), testbin.F32(float32(i)))
		} else {
			b.Frame(0x11, testbin.U64(ts))
		}
	}
	return b.WriteFile(t)
}

func TestRun_WorkerCountInvariance(t *testing.T) {
	path := largeLog(t)

	baseline, warnings := collect(t, path, flightlog.WithWorkers(1))
	require.Empty(t, warnings)
	require.Len(t, baseline, 500)

	for _, workers := range []int{2, 3, 8} {
		parallel, warnings := collect(t, path, flightlog.WithWorkers(workers))
		require.Empty(t, warnings)
		sameRecords(t, baseline, parallel)
	}
}

func TestRun_ModeInvariance(t *testing.T) {
	path := largeLog(t)

	threaded, _ := collect(t, path, flightlog.WithWorkers(4), flightlog.WithMode(flightlog.ModeThread))
	processed, _ := collect(t, path, flightlog.WithWorkers(4), flightlog.WithMode(flightlog.ModeProcess))
	sameRecords(t, threaded, processed)
}

func TestRun_Idempotent(t *testing.T) {
	path := largeLog(t)

	first, _ := collect(t, path, flightlog.WithWorkers(4))
	second, _ := collect(t, path, flightlog.WithWorkers(4))
	sameRecords(t, first, second)
}

func TestRun_TimestampsNonDecreasing(t *testing.T) {
	path := largeLog(t)

	records, _ := collect(t, path, flightlog.WithWorkers(8))
	for i := 1; i < len(records); i++ {
		assert.LessOrEqual(t, records[i-1].TimeUS, records[i].TimeUS)
	}
}

func TestRun_DropWarnings(t *testing.T) {
	path := testbin.New().
		FMT(0x11, 11, "IMU", "Q", "TimeUS").
		Frame(0x11, testbin.U64(10)).
		Frame(0x42, make([]byte, 17)).
		Frame(0x11, testbin.U64(20)).
		WriteFile(t)

	records, warnings := collect(t, path, flightlog.WithCollectWarnings(false))
	require.Len(t, records, 2)
	assert.Empty(t, warnings, "warnings are logged and dropped")
}

func TestRun_SpillDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "spill")
	path := largeLog(t)

	result, err := flightlog.New(path, flightlog.WithSpillDir(dir)).Run(context.Background())
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.NotEmpty(t, entries, "spill files live in the configured directory")

	count := 0
	for range result.Records {
		count++
	}
	assert.Equal(t, 500, count)

	require.NoError(t, result.Close())
	entries, err = os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "Close removes the run's spill files")
}

func TestRun_PebbleSpillStore(t *testing.T) {
	path := largeLog(t)
	ctx := context.Background()

	backend, err := pebbledb.New(pebbledb.Options{Path: filepath.Join(t.TempDir(), "spill")})
	require.NoError(t, err)
	defer backend.Cleanup(ctx)

	result, err := flightlog.New(path,
		flightlog.WithWorkers(4),
		flightlog.WithSpillStore(backend),
	).Run(ctx)
	require.NoError(t, err)
	defer result.Close()

	var viaPebble []record.Record
	for rec := range result.Records {
		viaPebble = append(viaPebble, rec)
	}

	baseline, _ := collect(t, path, flightlog.WithWorkers(4))
	sameRecords(t, baseline, viaPebble)
}

func TestRun_MissingFile(t *testing.T) {
	_, err := flightlog.New(filepath.Join(t.TempDir(), "nope.bin")).Run(context.Background())
	require.Error(t, err)

	var fatal *flightlog.FatalError
	require.True(t, errors.As(err, &fatal))
	assert.Equal(t, flightlog.KindIOError, fatal.Kind)
	assert.Equal(t, flightlog.NoSegment, fatal.Segment)
}

func TestRun_Canceled(t *testing.T) {
	path := largeLog(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := flightlog.New(path, flightlog.WithWorkers(2)).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
