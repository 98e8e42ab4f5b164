// Package main runs an effect scenario against the configured content and
// prints its report.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/statusfx/internal/config"
	"github.com/cory-johannsen/statusfx/internal/game/dice"
	"github.com/cory-johannsen/statusfx/internal/game/effect"
	"github.com/cory-johannsen/statusfx/internal/game/effectscript"
	"github.com/cory-johannsen/statusfx/internal/observability"
	"github.com/cory-johannsen/statusfx/internal/scenario"
	"github.com/cory-johannsen/statusfx/internal/scripting"
	"github.com/cory-johannsen/statusfx/internal/server"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "", "path to configuration file; empty = defaults and STATUSFX_* environment")
	scenarioPath := flag.String("scenario", "content/scenarios/poison.yaml", "path to the scenario YAML file")
	realtime := flag.Bool("realtime", false, "drive the scenario from the wall clock instead of fixed steps")
	outPath := flag.String("out", "", "write the YAML report to this file; empty = stdout")
	seed := flag.Uint64("seed", 0, "dice seed; 0 = the scenario's seed, or a crypto source when it has none")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	catalog, err := effect.LoadDirectory(cfg.Content.EffectsDir)
	if err != nil {
		logger.Fatal("loading effect definitions", zap.Error(err))
	}
	logger.Info("effect catalog loaded",
		zap.String("dir", cfg.Content.EffectsDir),
		zap.Int("effects", catalog.Len()),
	)

	s, err := scenario.Load(*scenarioPath)
	if err != nil {
		logger.Fatal("loading scenario", zap.Error(err))
	}

	runner := scenario.NewRunner(catalog, cfg.Simulation, logger)
	if cfg.Scripting.Enabled {
		runner.Setup = scriptSetup(cfg, catalog, logger, *seed)
	}

	var report *scenario.Report
	if *realtime {
		report, err = runRealtime(runner, s, logger)
	} else {
		report, err = runner.Run(s)
	}
	if err != nil {
		logger.Fatal("running scenario", zap.Error(err))
	}

	var out io.Writer = os.Stdout
	if *outPath != "" {
		f, err := os.Create(*outPath)
		if err != nil {
			logger.Fatal("creating report file", zap.Error(err))
		}
		defer f.Close()
		out = f
	}
	if err := report.WriteYAML(out); err != nil {
		logger.Fatal("writing report", zap.Error(err))
	}

	logger.Info("scenario complete",
		zap.String("scenario", s.Name),
		zap.Bool("passed", report.Passed()),
		zap.Duration("elapsed", time.Since(start)),
	)
	if !report.Passed() {
		for _, f := range report.Failures() {
			fmt.Fprintln(os.Stderr, f)
		}
		os.Exit(1)
	}
}

// scriptSetup loads the Lua hooks into a fresh manager per run and binds them
// to the run's world. The dice seed is the flag, then the scenario's, then a
// crypto source.
func scriptSetup(cfg config.Config, catalog *effect.Catalog, logger *zap.Logger, seedFlag uint64) scenario.SetupFunc {
	return func(env *scenario.Env) (func(), error) {
		var src dice.Source
		switch {
		case seedFlag != 0:
			src = dice.NewSeededSource(seedFlag)
		case env.Scenario.Seed != 0:
			src = dice.NewSeededSource(env.Scenario.Seed)
		default:
			src = dice.NewCryptoSource()
		}
		mgr := scripting.NewManager(dice.NewLoggedRoller(src, logger), logger)
		if err := effectscript.LoadScripts(mgr, cfg.Content.ScriptsDir, cfg.Scripting.InstructionLimit); err != nil {
			mgr.Close()
			return nil, err
		}
		for _, err := range effectscript.Check(catalog, mgr) {
			logger.Warn("script hook missing", zap.Error(err))
		}
		bound := effectscript.Bind(catalog, mgr)
		effectscript.Wire(mgr, env.World, env.Directory, catalog)
		logger.Debug("effect scripts bound", zap.Int("effects", bound))
		return mgr.Close, nil
	}
}

// runRealtime runs the loop as a service and feeds scenario time from the
// wall clock until the scenario ends or the process is signalled.
func runRealtime(runner *scenario.Runner, s *scenario.Scenario, logger *zap.Logger) (*scenario.Report, error) {
	sess, err := runner.Start(s)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	var stopOnce sync.Once
	begin := time.Now()
	clock := &server.FuncService{
		StartFn: func() error {
			ticker := time.NewTicker(time.Duration(sess.Loop.FixedDelta() * float64(time.Second)))
			defer ticker.Stop()
			for {
				select {
				case <-done:
					return nil
				case <-ticker.C:
					now := time.Since(begin).Seconds()
					sess.Loop.Do(func() { sess.Due(now) })
					if now >= s.Until {
						cancel()
						return nil
					}
				}
			}
		},
		StopFn: func() { stopOnce.Do(func() { close(done) }) },
	}

	lc := server.NewLifecycle(logger)
	lc.Add("simulation", sess.Loop)
	lc.Add("scenario-clock", clock)
	if err := lc.Run(ctx); err != nil {
		return nil, err
	}

	sess.Due(s.Until)
	return sess.Finish(), nil
}
