// Command sim is the batch run driver: it loads a city definition, advances
// the world a fixed number of ticks, and records the run under the data
// directory, with a zstd report log and periodic snapshots per run plus a
// SQLite index shared across runs. Everything a run writes is reproducible
// from the initial snapshot and the report log; the index is derived state.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/google/uuid"

	"cityloom.ai/internal/content"
	"cityloom.ai/internal/persistence/indexdb"
	"cityloom.ai/internal/persistence/reportlog"
	"cityloom.ai/internal/persistence/snapshot"
	"cityloom.ai/internal/sim/tuning"
	"cityloom.ai/internal/sim/world"
)

// envConfig carries environment overrides for deployment knobs. Flags given
// explicitly on the command line win over these.
type envConfig struct {
	DataDir   string `env:"CITYLOOM_DATA_DIR"`
	LogLevel  string `env:"CITYLOOM_LOG_LEVEL"`
	DisableDB bool   `env:"CITYLOOM_DISABLE_DB" envDefault:"false"`
}

func main() {
	var (
		cityPath     = flag.String("city", "./configs/city.yaml", "city definition path")
		schemaPath   = flag.String("schema", "", "city definition schema path (default: <city dir>/schema/city_definition.schema.json)")
		settingsPath = flag.String("settings", "./configs/settings.yaml", "settings path (missing default falls back to built-ins)")
		dataDir      = flag.String("data", "./data", "runtime data directory")
		ticks        = flag.Int("ticks", 200, "ticks to advance")
		snapEvery    = flag.Int("snapshot_every", 50, "write a snapshot every N ticks (0 disables mid-run snapshots)")
		seedOverride = flag.Int64("seed", 0, "override the authored seed (0 keeps the definition's seed)")
		runID        = flag.String("run", "", "run id (default: random)")
		note         = flag.String("note", "", "free-form note stamped into world meta")
		logLevel     = flag.String("log_level", "info", "log level (debug, info, warn, error)")
		disableDB    = flag.Bool("disable_db", false, "disable sqlite run indexing")
	)
	flag.Parse()

	var ec envConfig
	if err := env.Parse(&ec); err != nil {
		fmt.Fprintln(os.Stderr, "parse env:", err)
		os.Exit(2)
	}
	setFlags := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { setFlags[f.Name] = true })
	if !setFlags["data"] && ec.DataDir != "" {
		*dataDir = ec.DataDir
	}
	if !setFlags["log_level"] && ec.LogLevel != "" {
		*logLevel = ec.LogLevel
	}
	if !setFlags["disable_db"] && ec.DisableDB {
		*disableDB = true
	}

	logger := newLogger(*logLevel)

	if *ticks < 1 {
		fmt.Fprintln(os.Stderr, "usage: sim -ticks must be >= 1")
		os.Exit(2)
	}

	cfg, err := tuning.Load(*settingsPath)
	if err != nil {
		// Only the default path may be absent; an explicit -settings must load.
		if os.IsNotExist(err) && !setFlags["settings"] {
			logger.Warn("settings not found, using defaults", "path", *settingsPath)
			cfg = tuning.Defaults()
		} else {
			fatal(logger, "load settings", err)
		}
	}

	schema := *schemaPath
	if schema == "" {
		schema = filepath.Join(filepath.Dir(*cityPath), "schema", "city_definition.schema.json")
	}
	w, err := content.LoadWorld(*cityPath, schema)
	if err != nil {
		fatal(logger, "load city", err)
	}
	if *seedOverride != 0 {
		w.Seed = *seedOverride
	}
	if *note != "" {
		w.Meta["run.note"] = *note
	}

	rid := *runID
	if rid == "" {
		rid = uuid.NewString()
	}
	runDir := filepath.Join(*dataDir, "runs", rid)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		fatal(logger, "create run directory", err)
	}

	var idx *indexdb.SQLiteIndex
	if !*disableDB {
		idx, err = indexdb.OpenSQLite(filepath.Join(*dataDir, "sim.db"))
		if err != nil {
			fatal(logger, "open index db", err)
		}
		row := indexdb.RunRow{
			RunID:         rid,
			CityID:        w.City.ID,
			StartedAt:     time.Now().UTC().Format(time.RFC3339Nano),
			Seed:          w.Seed,
			ContentDigest: w.Meta[content.MetaContentDigest],
		}
		if err := idx.StartRun(row); err != nil {
			fatal(logger, "index run start", err)
		}
	}

	eng := world.NewEngine(w, &cfg)

	writeSnap := func() (string, error) {
		snap := w.ExportSnapshot()
		path := filepath.Join(runDir, fmt.Sprintf("snap_%06d.json", snap.Header.Tick))
		if err := snapshot.Write(path, snap); err != nil {
			return "", err
		}
		if idx != nil {
			idx.RecordSnapshot(rid, path, snap)
		}
		return path, nil
	}

	// The tick-0 snapshot anchors replay: a fresh engine restarts the random
	// stream from the creation seed, so only this capture lines up with the
	// report log from the first tick.
	if _, err := writeSnap(); err != nil {
		fatal(logger, "write initial snapshot", err)
	}

	wtr, err := reportlog.NewWriter(filepath.Join(runDir, "reports.jsonl.zst"))
	if err != nil {
		fatal(logger, "open report log", err)
	}

	logger.Info("run started",
		"run", rid, "city", w.City.ID, "seed", w.Seed, "ticks", *ticks, "data", runDir)

	start := time.Now()
	var last world.TickReport
	lastSnapTick := uint64(0)
	remaining := *ticks
	for remaining > 0 {
		n := remaining
		if lim := cfg.Engine.MaxTicksPerCall; lim > 0 && n > lim {
			n = lim
		}
		if *snapEvery > 0 {
			if until := *snapEvery - int(w.Tick%uint64(*snapEvery)); n > until {
				n = until
			}
		}

		reports, err := eng.AdvanceTicks(n, nil)
		if err != nil {
			fatal(logger, "advance ticks", err)
		}
		for _, rep := range reports {
			// The report log is the run's source of truth; a failed append
			// ends the run rather than leave a hole.
			if err := wtr.Append(rep); err != nil {
				fatal(logger, "append report", err)
			}
			if idx != nil {
				idx.RecordTick(rid, rep)
			}
		}
		last = reports[len(reports)-1]
		remaining -= n

		if *snapEvery > 0 && w.Tick%uint64(*snapEvery) == 0 {
			if _, err := writeSnap(); err != nil {
				fatal(logger, "write snapshot", err)
			}
			lastSnapTick = w.Tick
		}
		logger.Debug("chunk complete", "tick", w.Tick, "remaining", remaining)
	}

	if err := wtr.Close(); err != nil {
		fatal(logger, "close report log", err)
	}
	if lastSnapTick != w.Tick {
		if _, err := writeSnap(); err != nil {
			fatal(logger, "write final snapshot", err)
		}
	}

	if idx != nil {
		idx.FinishRun(rid, w.Tick, last.StateDigest)
		st := idx.Stats()
		if st.DropTickTotal > 0 || st.DropSnapshotTotal > 0 {
			logger.Warn("index queue dropped rows",
				"ticks", st.DropTickTotal, "snapshots", st.DropSnapshotTotal)
		}
		if err := idx.Close(); err != nil {
			logger.Error("close index db", "err", err)
		}
	}

	logger.Info("run complete",
		"run", rid, "ticks", w.Tick, "digest", last.StateDigest,
		"elapsed", time.Since(start).Round(time.Millisecond))
}

func newLogger(level string) *slog.Logger {
	var lv slog.Level
	if err := lv.UnmarshalText([]byte(level)); err != nil {
		lv = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lv}))
}

func fatal(logger *slog.Logger, msg string, err error) {
	logger.Error(msg, "err", err)
	os.Exit(1)
}
