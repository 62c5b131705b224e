// Package records persists the analyzer's unified output records: one
// summary row per singles event, coincidence, and scaler period,
// grouped under a run.
package records

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/recoil.report/internal/detector"
)

// Writer is the narrow interface the engine writes through, so tests
// can substitute an in-memory recorder.
type Writer interface {
	WriteHeadSingles(h *detector.Head) error
	WriteTailSingles(t *detector.Tail) error
	WriteCoinc(c *detector.Coinc) error
	WriteScaler(s *detector.Scaler) error
}

// Store is the SQLite-backed Writer.
type Store struct {
	*sql.DB

	runID string
}

// Open opens (or creates) the records database at path. Pass ":memory:"
// for an ephemeral store in tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			run_id            TEXT PRIMARY KEY,
			run_number        BIGINT,
			started_at        TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			stopped_at        TIMESTAMP,
			singles_count     BIGINT DEFAULT 0,
			coinc_count       BIGINT DEFAULT 0,
			dropped_count     BIGINT DEFAULT 0
		);
		CREATE TABLE IF NOT EXISTS head_singles (
			run_id            TEXT,
			serial            BIGINT,
			trigger_time      BIGINT,
			bgo_sum           DOUBLE,
			bgo_hit0          BIGINT,
			bgo_e0            DOUBLE,
			bgo_t0            DOUBLE,
			tcal0             DOUBLE,
			tcalx             DOUBLE,
			timestamp         TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY(run_id) REFERENCES runs(run_id)
		);
		CREATE TABLE IF NOT EXISTS tail_singles (
			run_id            TEXT,
			serial            BIGINT,
			trigger_time      BIGINT,
			dsssd_efront      DOUBLE,
			dsssd_eback       DOUBLE,
			dsssd_tcal        DOUBLE,
			ic_sum            DOUBLE,
			mcp_esum          DOUBLE,
			mcp_tac           DOUBLE,
			mcp_x             DOUBLE,
			mcp_y             DOUBLE,
			tof_mcp           DOUBLE,
			tcal0             DOUBLE,
			tcalx             DOUBLE,
			timestamp         TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY(run_id) REFERENCES runs(run_id)
		);
		CREATE TABLE IF NOT EXISTS coincidences (
			run_id            TEXT,
			head_serial       BIGINT,
			tail_serial       BIGINT,
			head_trigger_time BIGINT,
			tail_trigger_time BIGINT,
			xtrig_us          DOUBLE,
			xtof_head         DOUBLE,
			xtof_tail         DOUBLE,
			bgo_sum           DOUBLE,
			dsssd_efront      DOUBLE,
			tof_mcp           DOUBLE,
			timestamp         TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY(run_id) REFERENCES runs(run_id)
		);
		CREATE TABLE IF NOT EXISTS scaler_readings (
			run_id            TEXT,
			frontend          TEXT,
			channel           BIGINT,
			name              TEXT,
			count             BIGINT,
			sum               BIGINT,
			rate              DOUBLE,
			timestamp         TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY(run_id) REFERENCES runs(run_id)
		);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{DB: db}, nil
}

// RunID returns the current run id, empty before BeginRun.
func (s *Store) RunID() string { return s.runID }

// BeginRun opens a new run row and scopes subsequent writes to it.
func (s *Store) BeginRun(runNumber int64) error {
	id := uuid.NewString()
	if _, err := s.Exec(
		`INSERT INTO runs (run_id, run_number) VALUES (?, ?)`, id, runNumber,
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	s.runID = id
	return nil
}

// EndRun stamps the run row with its stop time and final counters.
func (s *Store) EndRun(singles, coinc, dropped uint64) error {
	if s.runID == "" {
		return fmt.Errorf("end run: no run in progress")
	}
	_, err := s.Exec(
		`UPDATE runs SET stopped_at = ?, singles_count = ?, coinc_count = ?, dropped_count = ? WHERE run_id = ?`,
		time.Now().UTC(), singles, coinc, dropped, s.runID,
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	s.runID = ""
	return nil
}

// nullable converts the calibrated no-data sentinel to SQL NULL.
func nullable(v float64) interface{} {
	if !detector.IsData(v) {
		return nil
	}
	return v
}

// WriteHeadSingles inserts one gamma-side summary row.
func (s *Store) WriteHeadSingles(h *detector.Head) error {
	e0 := h.Bgo.Esort[0]
	_, err := s.Exec(`
		INSERT INTO head_singles (
			run_id, serial, trigger_time,
			bgo_sum, bgo_hit0, bgo_e0, bgo_t0, tcal0, tcalx
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.runID, h.Header.Serial, int64(h.Fpga.TriggerTime),
		nullable(h.Bgo.Sum), h.Bgo.Hit0, nullable(e0), nullable(h.Bgo.T0),
		nullable(h.Tcal0), nullable(h.Tcalx),
	)
	if err != nil {
		return fmt.Errorf("insert head singles: %w", err)
	}
	return nil
}

// WriteTailSingles inserts one heavy-ion-side summary row.
func (s *Store) WriteTailSingles(t *detector.Tail) error {
	_, err := s.Exec(`
		INSERT INTO tail_singles (
			run_id, serial, trigger_time,
			dsssd_efront, dsssd_eback, dsssd_tcal,
			ic_sum, mcp_esum, mcp_tac, mcp_x, mcp_y, tof_mcp, tcal0, tcalx
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.runID, t.Header.Serial, int64(t.Fpga.TriggerTime),
		nullable(t.Dsssd.EFront), nullable(t.Dsssd.EBack), nullable(t.Dsssd.Tcal),
		nullable(t.Ic.Sum), nullable(t.Mcp.Esum), nullable(t.Mcp.Tac),
		nullable(t.Mcp.X), nullable(t.Mcp.Y), nullable(t.Tof.Mcp),
		nullable(t.Tcal0), nullable(t.Tcalx),
	)
	if err != nil {
		return fmt.Errorf("insert tail singles: %w", err)
	}
	return nil
}

// WriteCoinc inserts one coincidence summary row.
func (s *Store) WriteCoinc(c *detector.Coinc) error {
	_, err := s.Exec(`
		INSERT INTO coincidences (
			run_id, head_serial, tail_serial,
			head_trigger_time, tail_trigger_time,
			xtrig_us, xtof_head, xtof_tail,
			bgo_sum, dsssd_efront, tof_mcp
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.runID, c.Head.Header.Serial, c.Tail.Header.Serial,
		int64(c.Head.Fpga.TriggerTime), int64(c.Tail.Fpga.TriggerTime),
		nullable(c.Xtrig), nullable(c.XtofHead), nullable(c.XtofTail),
		nullable(c.Head.Bgo.Sum), nullable(c.Tail.Dsssd.EFront), nullable(c.Tail.Tof.Mcp),
	)
	if err != nil {
		return fmt.Errorf("insert coincidence: %w", err)
	}
	return nil
}

// WriteScaler inserts the current period's reading of every channel.
func (s *Store) WriteScaler(sc *detector.Scaler) error {
	tx, err := s.Begin()
	if err != nil {
		return fmt.Errorf("begin scaler tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO scaler_readings (run_id, frontend, channel, name, count, sum, rate)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare scaler insert: %w", err)
	}
	defer stmt.Close()

	for ch := 0; ch < detector.ScalerChannels; ch++ {
		if _, err := stmt.Exec(
			s.runID, sc.Name(), ch, sc.ChannelName(ch),
			sc.Count[ch], sc.Sum[ch], sc.Rate[ch],
		); err != nil {
			return fmt.Errorf("insert scaler channel %d: %w", ch, err)
		}
	}
	return tx.Commit()
}
