package records

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/recoil.report/internal/detector"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.BeginRun(42))
	return store
}

func TestBeginEndRun(t *testing.T) {
	store := openTestStore(t)
	runID := store.RunID()
	require.NotEmpty(t, runID)

	require.NoError(t, store.EndRun(10, 2, 1))
	assert.Empty(t, store.RunID())

	var number, singles, coinc, dropped int64
	row := store.QueryRow(`SELECT run_number, singles_count, coinc_count, dropped_count FROM runs WHERE run_id = ?`, runID)
	require.NoError(t, row.Scan(&number, &singles, &coinc, &dropped))
	assert.Equal(t, int64(42), number)
	assert.Equal(t, int64(10), singles)
	assert.Equal(t, int64(2), coinc)
	assert.Equal(t, int64(1), dropped)

	// Ending twice is an error.
	require.Error(t, store.EndRun(0, 0, 0))
}

func TestWriteHeadSingles(t *testing.T) {
	store := openTestStore(t)

	h := detector.NewHead()
	h.Header.Serial = 7
	h.Fpga.TriggerTime = 123456789
	h.Bgo.Sum = 1500.5
	h.Bgo.Hit0 = 4
	h.Bgo.Esort[0] = 900

	require.NoError(t, store.WriteHeadSingles(h))

	var serial, trigger int64
	var sum, e0 float64
	var t0 interface{}
	row := store.QueryRow(`SELECT serial, trigger_time, bgo_sum, bgo_e0, bgo_t0 FROM head_singles`)
	require.NoError(t, row.Scan(&serial, &trigger, &sum, &e0, &t0))
	assert.Equal(t, int64(7), serial)
	assert.Equal(t, int64(123456789), trigger)
	assert.Equal(t, 1500.5, sum)
	assert.Equal(t, 900.0, e0)
	// The no-data sentinel persists as NULL.
	assert.Nil(t, t0)
}

func TestWriteTailSinglesAndCoinc(t *testing.T) {
	store := openTestStore(t)

	tl := detector.NewTail()
	tl.Header.Serial = 9
	tl.Fpga.TriggerTime = 5000
	tl.Dsssd.EFront = 700
	tl.Tof.Mcp = 900

	require.NoError(t, store.WriteTailSingles(tl))

	c := detector.NewCoinc()
	c.Head.Header.Serial = 7
	c.Tail.Header.Serial = 9
	c.Head.Fpga.TriggerTime = 4000
	c.Tail.Fpga.TriggerTime = 5000
	c.Xtrig = 1.0
	c.XtofHead = 750

	require.NoError(t, store.WriteCoinc(c))

	var headSerial, tailSerial int64
	var xtrig float64
	var xtofTail interface{}
	row := store.QueryRow(`SELECT head_serial, tail_serial, xtrig_us, xtof_tail FROM coincidences`)
	require.NoError(t, row.Scan(&headSerial, &tailSerial, &xtrig, &xtofTail))
	assert.Equal(t, int64(7), headSerial)
	assert.Equal(t, int64(9), tailSerial)
	assert.Equal(t, 1.0, xtrig)
	assert.Nil(t, xtofTail)
}

func TestWriteScaler(t *testing.T) {
	store := openTestStore(t)

	s := detector.NewScaler("head")
	s.Count[0] = 10
	s.Sum[0] = 30
	s.Rate[0] = 5
	s.Variables.Names[0] = "triggers_presented"

	require.NoError(t, store.WriteScaler(s))

	var n int
	require.NoError(t, store.QueryRow(`SELECT COUNT(*) FROM scaler_readings`).Scan(&n))
	assert.Equal(t, detector.ScalerChannels, n)

	var name string
	var count, sum int64
	var rate float64
	row := store.QueryRow(`SELECT name, count, sum, rate FROM scaler_readings WHERE channel = 0`)
	require.NoError(t, row.Scan(&name, &count, &sum, &rate))
	assert.Equal(t, "triggers_presented", name)
	assert.Equal(t, int64(10), count)
	assert.Equal(t, int64(30), sum)
	assert.Equal(t, 5.0, rate)
}
