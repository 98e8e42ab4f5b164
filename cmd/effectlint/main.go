// Package main validates effect definitions, their Lua hook references and
// any scenarios that use them.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/statusfx/internal/game/dice"
	"github.com/cory-johannsen/statusfx/internal/game/effect"
	"github.com/cory-johannsen/statusfx/internal/game/effectscript"
	"github.com/cory-johannsen/statusfx/internal/scenario"
	"github.com/cory-johannsen/statusfx/internal/scripting"
)

func main() {
	effectsDir := flag.String("effects", "content/effects", "path to effect definition directory")
	scriptsDir := flag.String("scripts", "content/scripts", "path to Lua hook scripts; empty = skip hook checks")
	scenariosDir := flag.String("scenarios", "content/scenarios", "path to scenario files; empty = skip scenarios")
	flag.Parse()

	start := time.Now()
	catalog, err := effect.LoadDirectory(*effectsDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	var problems []string
	if *scriptsDir != "" {
		problems = append(problems, checkScripts(catalog, *scriptsDir)...)
	}
	if *scenariosDir != "" {
		problems = append(problems, checkScenarios(catalog, *scenariosDir)...)
	}

	for _, p := range problems {
		fmt.Fprintln(os.Stderr, p)
	}
	if len(problems) > 0 {
		fmt.Fprintf(os.Stderr, "%d problem(s)\n", len(problems))
		os.Exit(1)
	}
	fmt.Printf("%d effect(s) ok in %s\n", catalog.Len(), time.Since(start).Round(time.Millisecond))
}

func checkScripts(catalog *effect.Catalog, dir string) []string {
	logger := zap.NewNop()
	mgr := scripting.NewManager(dice.NewLoggedRoller(dice.NewCryptoSource(), logger), logger)
	defer mgr.Close()
	if err := effectscript.LoadScripts(mgr, dir, 0); err != nil {
		return []string{err.Error()}
	}
	var out []string
	for _, err := range effectscript.Check(catalog, mgr) {
		out = append(out, err.Error())
	}
	return out
}

func checkScenarios(catalog *effect.Catalog, dir string) []string {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return []string{err.Error()}
	}
	sort.Strings(paths)
	var out []string
	for _, path := range paths {
		s, err := scenario.Load(path)
		if err != nil {
			out = append(out, err.Error())
			continue
		}
		for _, id := range s.Effects() {
			if _, ok := catalog.Get(id); !ok {
				out = append(out, fmt.Sprintf("scenario %q: unknown effect %q", path, id))
			}
		}
	}
	return out
}
