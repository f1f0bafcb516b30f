// Command econsim runs the spatial bilateral exchange simulation.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/cmfunderburk/vmt-dev-sub000/internal/api"
	"github.com/cmfunderburk/vmt-dev-sub000/internal/engine"
	"github.com/cmfunderburk/vmt-dev-sub000/internal/persistence"
	"github.com/cmfunderburk/vmt-dev-sub000/internal/scenario"
)

func main() {
	var (
		scenarioPath = flag.String("scenario", "", "scenario YAML file (empty = built-in default)")
		seed         = flag.Int64("seed", 42, "random seed")
		ticks        = flag.Uint64("ticks", 200, "ticks to run (0 = until interrupted, live mode only)")
		dbPath       = flag.String("db", "", "SQLite run database (empty = disabled)")
		tickLogPath  = flag.String("ticklog", "", "zstd JSONL tick log (empty = disabled)")
		port         = flag.Int("port", 0, "HTTP API port; > 0 runs live with pacing")
		interval     = flag.Duration("interval", 200*time.Millisecond, "base tick interval in live mode")
		logLevel     = flag.String("log-level", "info", "debug, info, warn or error")
		replayPath   = flag.String("replay", "", "summarize an existing tick log and exit")
	)
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(*logLevel),
	}))
	slog.SetDefault(logger)

	if *replayPath != "" {
		if err := replay(*replayPath); err != nil {
			slog.Error("replay failed", "error", err)
			os.Exit(1)
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, options{
		scenarioPath: *scenarioPath,
		seed:         *seed,
		ticks:        *ticks,
		dbPath:       *dbPath,
		tickLogPath:  *tickLogPath,
		port:         *port,
		interval:     *interval,
	}); err != nil {
		slog.Error("simulation failed", "error", err)
		os.Exit(1)
	}
}

type options struct {
	scenarioPath string
	seed         int64
	ticks        uint64
	dbPath       string
	tickLogPath  string
	port         int
	interval     time.Duration
}

func run(ctx context.Context, opt options) error {
	// ── Scenario ──────────────────────────────────────────────────────
	sc := scenario.Default()
	if opt.scenarioPath != "" {
		var err error
		if sc, err = scenario.Load(opt.scenarioPath); err != nil {
			return err
		}
	}
	if opt.ticks == 0 && opt.port <= 0 {
		return errors.New("-ticks 0 requires -port (live mode)")
	}

	sim, err := engine.New(sc, opt.seed)
	if err != nil {
		return fmt.Errorf("create simulation: %w", err)
	}

	// ── Sinks ─────────────────────────────────────────────────────────
	sinks := engine.MultiSink{engine.LogSink{Logger: slog.Default()}}
	stats := &summary{}
	sinks = append(sinks, stats)

	var db *persistence.DB
	if opt.dbPath != "" {
		if db, err = persistence.Open(opt.dbPath); err != nil {
			return err
		}
		defer db.Close()
		if sim.RunID, err = db.BeginRun(sc, opt.seed); err != nil {
			return err
		}
		sinks = append(sinks, db)
		slog.Info("run database opened", "path", opt.dbPath, "run_id", sim.RunID)
	}

	var tickLog *persistence.TickLog
	if opt.tickLogPath != "" {
		if tickLog, err = persistence.CreateTickLog(opt.tickLogPath); err != nil {
			return fmt.Errorf("create tick log: %w", err)
		}
		defer tickLog.Close()
		sinks = append(sinks, tickLog)
	}

	// ── Run ───────────────────────────────────────────────────────────
	start := time.Now()
	startTotals := sim.Totals()
	if opt.port > 0 {
		hub := api.NewHub(0)
		sinks = append(sinks, hub)
		eng := engine.NewEngine(sim, sinks)
		eng.Interval = opt.interval

		srv := &api.Server{
			Hub:      hub,
			Eng:      eng,
			DB:       db,
			RunID:    sim.RunID,
			Port:     opt.port,
			AdminKey: os.Getenv("ECONSIM_ADMIN_KEY"),
		}
		if srv.AdminKey == "" {
			slog.Warn("ECONSIM_ADMIN_KEY not set; admin POST endpoints disabled")
		}
		go func() {
			if err := srv.ListenAndServe(ctx); err != nil {
				slog.Error("HTTP server error", "error", err)
			}
		}()
		fmt.Printf("API: http://localhost:%d/api/v1/status\n", opt.port)
		err = eng.Run(ctx, opt.ticks)
	} else {
		err = sim.Run(ctx, opt.ticks, sinks)
		if errors.Is(err, context.Canceled) {
			err = nil
		}
	}
	if err != nil {
		var iv *engine.InvariantViolation
		if errors.As(err, &iv) {
			slog.Error("invariant violated", "tick", iv.Tick, "agent", iv.AgentID, "kind", iv.Kind, "detail", iv.Detail)
		}
		return err
	}

	// ── Summary ───────────────────────────────────────────────────────
	end := sim.Totals()
	fmt.Printf("\n%s ticks in %s (seed %d, %d agents)\n",
		humanize.Comma(int64(sim.Tick)), time.Since(start).Round(time.Millisecond), opt.seed, len(sim.Agents))
	fmt.Printf("trades: %s  harvests: %s  pairings: %s\n",
		humanize.Comma(stats.trades), humanize.Comma(stats.harvests), humanize.Comma(stats.pairs))
	fmt.Printf("goods A %s -> %s, B %s -> %s, M %s\n",
		humanize.Comma(int64(startTotals.A())), humanize.Comma(int64(end.A())),
		humanize.Comma(int64(startTotals.B())), humanize.Comma(int64(end.B())),
		humanize.Comma(int64(end.M())))
	fmt.Printf("final digest: %s\n", sim.StateDigest())
	if db != nil {
		if err := db.SaveMeta(sim.RunID, "final_tick", strconv.FormatUint(sim.Tick, 10)); err != nil {
			slog.Error("save run meta", "error", err)
		}
		fmt.Printf("run %s: %s reports queued, %s dropped\n", sim.RunID,
			humanize.Comma(int64(stats.ticks)), humanize.Comma(int64(db.Dropped())))
	}
	if tickLog != nil {
		if err := tickLog.Close(); err != nil {
			return fmt.Errorf("close tick log: %w", err)
		}
		if fi, err := os.Stat(opt.tickLogPath); err == nil {
			fmt.Printf("tick log: %s (%s, %s dropped)\n", opt.tickLogPath,
				humanize.Bytes(uint64(fi.Size())), humanize.Comma(int64(tickLog.Dropped())))
		}
	}
	return nil
}

// summary counts events across a run.
type summary struct {
	ticks    uint64
	trades   int64
	harvests int64
	pairs    int64
}

func (s *summary) Record(r *engine.TickReport) {
	s.ticks++
	s.trades += int64(len(r.Trades))
	s.harvests += int64(len(r.Harvests))
	for _, p := range r.Pairings {
		if p.Kind == engine.EventPair {
			s.pairs++
		}
	}
}

func replay(path string) error {
	stats := &summary{}
	var last *engine.TickReport
	err := persistence.ReadTickLog(path, func(r *engine.TickReport) error {
		stats.Record(r)
		last = r
		return nil
	})
	if err != nil {
		return err
	}
	if last == nil {
		return fmt.Errorf("%s: empty tick log", path)
	}
	fmt.Printf("%s: %s ticks, %s trades, %s harvests, %s pairings\n", path,
		humanize.Comma(int64(stats.ticks)), humanize.Comma(stats.trades),
		humanize.Comma(stats.harvests), humanize.Comma(stats.pairs))
	fmt.Printf("last tick %d (%s), digest %s\n", last.Tick, last.Mode, last.Digest)
	return nil
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
