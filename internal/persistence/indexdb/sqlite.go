// Package indexdb maintains a queryable SQLite index over finished and
// running simulations. It is a secondary structure: the report log and
// snapshots remain the source of truth, and the indexer sheds load rather
// than stall the engine.
package indexdb

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"cityloom.ai/internal/persistence/snapshot"
	"cityloom.ai/internal/sim/world"
)

type RunRow struct {
	RunID         string `db:"run_id" json:"run_id"`
	CityID        string `db:"city_id" json:"city_id"`
	StartedAt     string `db:"started_at" json:"started_at"`
	Seed          int64  `db:"seed" json:"seed"`
	Ticks         uint64 `db:"ticks" json:"ticks"`
	ContentDigest string `db:"content_digest" json:"content_digest"`
	FinalDigest   string `db:"final_digest" json:"final_digest"`
}

type TickStatRow struct {
	RunID     string  `db:"run_id" json:"run_id"`
	Tick      uint64  `db:"tick" json:"tick"`
	Stability float64 `db:"stability" json:"stability"`
	Unrest    float64 `db:"unrest" json:"unrest"`
	Pollution float64 `db:"pollution" json:"pollution"`
	Shortages int     `db:"shortages" json:"shortages"`
	Events    int     `db:"events" json:"events"`
	Digest    string  `db:"digest" json:"digest"`
}

type SnapshotRow struct {
	RunID  string `db:"run_id" json:"run_id"`
	Tick   uint64 `db:"tick" json:"tick"`
	Path   string `db:"path" json:"path"`
	Digest string `db:"digest" json:"digest"`
}

type SeedEventRow struct {
	RunID    string `db:"run_id" json:"run_id"`
	Tick     uint64 `db:"tick" json:"tick"`
	Seq      int    `db:"seq" json:"seq"`
	SeedID   string `db:"seed_id" json:"seed_id"`
	Title    string `db:"title" json:"title"`
	District string `db:"district" json:"district"`
	Reason   string `db:"reason" json:"reason"`
}

type reqKind int

const (
	reqTick reqKind = iota + 1
	reqSnapshot
	reqFinish
)

type req struct {
	kind reqKind

	stat     TickStatRow
	seeds    []SeedEventRow
	snapshot SnapshotRow
	finish   RunRow
}

// Stats reports queue pressure and shed writes.
type Stats struct {
	QueueDepth        int   `json:"queue_depth"`
	QueueCapacity     int   `json:"queue_capacity"`
	DropTickTotal     int64 `json:"drop_tick_total"`
	DropSnapshotTotal int64 `json:"drop_snapshot_total"`
}

// SQLiteIndex writes index rows from a single goroutine fed by a buffered
// channel; producers never block on the database. Queries run on the same
// connection and may briefly wait for an in-flight batch to commit.
type SQLiteIndex struct {
	db *sqlx.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed       atomic.Bool
	dropTick     atomic.Int64
	dropSnapshot atomic.Int64
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, 8192),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sqlx.DB) error {
	// WAL suits the append-heavy write path; NORMAL is enough durability for
	// a rebuildable index.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sqlx.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			city_id TEXT NOT NULL,
			started_at TEXT NOT NULL,
			seed INTEGER NOT NULL,
			ticks INTEGER NOT NULL DEFAULT 0,
			content_digest TEXT NOT NULL,
			final_digest TEXT NOT NULL DEFAULT ''
		);`,
		`CREATE TABLE IF NOT EXISTS tick_stats (
			run_id TEXT NOT NULL,
			tick INTEGER NOT NULL,
			stability REAL NOT NULL,
			unrest REAL NOT NULL,
			pollution REAL NOT NULL,
			shortages INTEGER NOT NULL,
			events INTEGER NOT NULL,
			digest TEXT NOT NULL,
			PRIMARY KEY (run_id, tick)
		);`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			run_id TEXT NOT NULL,
			tick INTEGER NOT NULL,
			path TEXT NOT NULL,
			digest TEXT NOT NULL,
			PRIMARY KEY (run_id, tick)
		);`,
		`CREATE TABLE IF NOT EXISTS seed_events (
			run_id TEXT NOT NULL,
			tick INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			seed_id TEXT NOT NULL,
			title TEXT NOT NULL,
			district TEXT NOT NULL DEFAULT '',
			reason TEXT NOT NULL,
			PRIMARY KEY (run_id, tick, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_seed_events_seed ON seed_events(seed_id, tick);`,
		`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1');`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:        len(s.ch),
		QueueCapacity:     cap(s.ch),
		DropTickTotal:     s.dropTick.Load(),
		DropSnapshotTotal: s.dropSnapshot.Load(),
	}
}

// StartRun registers the run before any tick rows land. Re-registering the
// same run id replaces the row, so a resumed run keeps a single entry.
func (s *SQLiteIndex) StartRun(run RunRow) error {
	if s == nil {
		return nil
	}
	_, err := s.db.NamedExec(`INSERT OR REPLACE INTO
		runs(run_id, city_id, started_at, seed, ticks, content_digest, final_digest)
		VALUES(:run_id, :city_id, :started_at, :seed, :ticks, :content_digest, :final_digest)`, run)
	return err
}

// FinishRun queues the final row update behind any pending tick rows so the
// recorded tick count never runs ahead of the indexed stats. Close flushes it.
func (s *SQLiteIndex) FinishRun(runID string, ticks uint64, finalDigest string) {
	if s == nil || s.closed.Load() {
		return
	}
	s.ch <- req{kind: reqFinish, finish: RunRow{RunID: runID, Ticks: ticks, FinalDigest: finalDigest}}
}

// RecordTick indexes one report. When the queue is full the row is shed; the
// report log keeps the full record.
func (s *SQLiteIndex) RecordTick(runID string, rep world.TickReport) {
	if s == nil || s.closed.Load() {
		return
	}
	r := req{
		kind: reqTick,
		stat: TickStatRow{
			RunID:     runID,
			Tick:      rep.Tick,
			Stability: rep.Environment.Stability,
			Unrest:    rep.Environment.Unrest,
			Pollution: rep.Environment.Pollution,
			Shortages: len(rep.Economy.Shortages),
			Events: len(rep.FocusBudget.Visible) +
				len(rep.FocusBudget.Archive) +
				len(rep.FocusBudget.Suppressed),
			Digest: rep.StateDigest,
		},
	}
	for i, ev := range rep.DirectorEvents {
		r.seeds = append(r.seeds, SeedEventRow{
			RunID:    runID,
			Tick:     rep.Tick,
			Seq:      i,
			SeedID:   ev.Seed,
			Title:    ev.Title,
			District: ev.District,
			Reason:   ev.Reason,
		})
	}
	select {
	case s.ch <- r:
	default:
		s.dropTick.Add(1)
	}
}

func (s *SQLiteIndex) RecordSnapshot(runID, path string, snap snapshot.SnapshotV1) {
	if s == nil || s.closed.Load() {
		return
	}
	r := req{kind: reqSnapshot, snapshot: SnapshotRow{
		RunID:  runID,
		Tick:   snap.Header.Tick,
		Path:   path,
		Digest: snap.Header.Digest,
	}}
	select {
	case s.ch <- r:
	default:
		s.dropSnapshot.Add(1)
	}
}

func (s *SQLiteIndex) loop() {
	insertStat, _ := s.db.Preparex(`INSERT OR REPLACE INTO
		tick_stats(run_id,tick,stability,unrest,pollution,shortages,events,digest)
		VALUES(?,?,?,?,?,?,?,?)`)
	insertSeed, _ := s.db.Preparex(`INSERT OR REPLACE INTO
		seed_events(run_id,tick,seq,seed_id,title,district,reason)
		VALUES(?,?,?,?,?,?,?)`)
	insertSnap, _ := s.db.Preparex(`INSERT OR REPLACE INTO
		snapshots(run_id,tick,path,digest) VALUES(?,?,?,?)`)
	finishRun, _ := s.db.Preparex(`UPDATE runs SET ticks=?, final_digest=? WHERE run_id=?`)
	defer func() {
		for _, st := range []*sqlx.Stmt{insertStat, insertSeed, insertSnap, finishRun} {
			if st != nil {
				_ = st.Close()
			}
		}
	}()

	var (
		tx            *sqlx.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 512
		commitMaxWait = 2 * time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.Beginx()
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}

	for r := range s.ch {
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqTick:
			st := r.stat
			if insertStat != nil {
				if _, err := tx.Stmtx(insertStat).Exec(
					st.RunID, int64(st.Tick),
					st.Stability, st.Unrest, st.Pollution,
					st.Shortages, st.Events, st.Digest,
				); err != nil {
					rollback()
					continue
				}
				opCount++
			}
			for _, se := range r.seeds {
				if insertSeed == nil {
					break
				}
				if _, err := tx.Stmtx(insertSeed).Exec(
					se.RunID, int64(se.Tick), se.Seq,
					se.SeedID, se.Title, se.District, se.Reason,
				); err != nil {
					rollback()
					break
				}
				opCount++
			}

		case reqSnapshot:
			sn := r.snapshot
			if insertSnap != nil {
				if _, err := tx.Stmtx(insertSnap).Exec(
					sn.RunID, int64(sn.Tick), sn.Path, sn.Digest,
				); err != nil {
					rollback()
					continue
				}
				opCount++
			}

		case reqFinish:
			f := r.finish
			if finishRun != nil {
				if _, err := tx.Stmtx(finishRun).Exec(int64(f.Ticks), f.FinalDigest, f.RunID); err != nil {
					rollback()
					continue
				}
				opCount++
			}
		}

		// Committing on an empty queue keeps the connection free for readers
		// while a run idles.
		if tx != nil && (opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait || len(s.ch) == 0) {
			commit()
		}
	}

	commit()
}

// Run loads one run row.
func (s *SQLiteIndex) Run(runID string) (RunRow, error) {
	var r RunRow
	err := s.db.Get(&r, `SELECT run_id, city_id, started_at, seed, ticks, content_digest, final_digest
		FROM runs WHERE run_id = ?`, runID)
	return r, err
}

// Runs lists all runs, newest first.
func (s *SQLiteIndex) Runs() ([]RunRow, error) {
	var rows []RunRow
	err := s.db.Select(&rows, `SELECT run_id, city_id, started_at, seed, ticks, content_digest, final_digest
		FROM runs ORDER BY started_at DESC`)
	return rows, err
}

// TickStats returns stats for the inclusive tick range, in tick order.
func (s *SQLiteIndex) TickStats(runID string, fromTick, toTick uint64) ([]TickStatRow, error) {
	var rows []TickStatRow
	err := s.db.Select(&rows, `SELECT run_id, tick, stability, unrest, pollution, shortages, events, digest
		FROM tick_stats WHERE run_id = ? AND tick BETWEEN ? AND ? ORDER BY tick`,
		runID, int64(fromTick), int64(toTick))
	return rows, err
}

// SeedEvents returns every narrative beat recorded for the run, in order.
func (s *SQLiteIndex) SeedEvents(runID string) ([]SeedEventRow, error) {
	var rows []SeedEventRow
	err := s.db.Select(&rows, `SELECT run_id, tick, seq, seed_id, title, district, reason
		FROM seed_events WHERE run_id = ? ORDER BY tick, seq`, runID)
	return rows, err
}

// Snapshots lists recorded snapshots for the run, in tick order.
func (s *SQLiteIndex) Snapshots(runID string) ([]SnapshotRow, error) {
	var rows []SnapshotRow
	err := s.db.Select(&rows, `SELECT run_id, tick, path, digest
		FROM snapshots WHERE run_id = ? ORDER BY tick`, runID)
	return rows, err
}

// LatestSnapshot returns the newest snapshot at or before the given tick.
// sql.ErrNoRows surfaces when none qualifies.
func (s *SQLiteIndex) LatestSnapshot(runID string, atOrBefore uint64) (SnapshotRow, error) {
	var row SnapshotRow
	err := s.db.Get(&row, `SELECT run_id, tick, path, digest
		FROM snapshots WHERE run_id = ? AND tick <= ? ORDER BY tick DESC LIMIT 1`,
		runID, int64(atOrBefore))
	return row, err
}
