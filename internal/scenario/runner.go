package scenario

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/cory-johannsen/statusfx/internal/config"
	"github.com/cory-johannsen/statusfx/internal/game/actor"
	"github.com/cory-johannsen/statusfx/internal/game/effect"
	"github.com/cory-johannsen/statusfx/internal/game/status"
	"github.com/cory-johannsen/statusfx/internal/sim"
)

// timeEpsilon absorbs float drift when matching step times to frame times.
const timeEpsilon = 1e-9

// defaultTolerance is used for expectations that set none.
const defaultTolerance = 1e-6

// Env is the fresh world one scenario run executes in.
type Env struct {
	Scenario  *Scenario
	World     *actor.World
	Directory *effect.Directory
	Loop      *sim.Loop
}

// SetupFunc prepares an Env before the first step, typically by binding
// scripts to it. The returned teardown, if non-nil, runs after the run.
type SetupFunc func(env *Env) (teardown func(), err error)

// Runner executes scenarios against a catalog.
type Runner struct {
	catalog *effect.Catalog
	sim     config.SimulationConfig
	logger  *zap.Logger

	// Setup runs once per scenario after the actors are spawned. Optional.
	Setup SetupFunc
}

// NewRunner creates a Runner.
//
// Precondition: catalog must be non-nil. A nil logger disables logging.
func NewRunner(catalog *effect.Catalog, cfg config.SimulationConfig, logger *zap.Logger) *Runner {
	if catalog == nil {
		panic("scenario.NewRunner: catalog must not be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{catalog: catalog, sim: cfg, logger: logger}
}

// Session is one scenario in progress. Run drives it in fixed steps; callers
// with their own clock call Due as time passes and Finish at the end.
//
// Due and Finish must run on the goroutine that drives the loop.
type Session struct {
	*Env
	catalog  *effect.Catalog
	logger   *zap.Logger
	names    map[actor.ID]string
	now      float64
	report   *Report
	steps    []Step
	expects  []Expectation
	teardown func()
}

// Start builds a fresh world for s, spawns its actors and runs Setup.
//
// Postcondition: Returns an error when an effect ID is unknown, an actor
// cannot be spawned or Setup fails; no teardown is pending in that case.
func (r *Runner) Start(s *Scenario) (*Session, error) {
	if err := r.resolve(s); err != nil {
		return nil, err
	}
	cfg := r.sim
	if s.FrameRate > 0 {
		cfg.FrameRate = s.FrameRate
	}
	cfg.Preview = false
	cfg.StartPaused = false
	if cfg.FrameRate <= 0 {
		return nil, fmt.Errorf("scenario %s: frame rate must be > 0", s.Name)
	}

	logger := r.logger.With(zap.String("scenario", s.Name))
	world := actor.NewWorld()
	dir := effect.NewDirectory(world, logger)
	x := &Session{
		Env: &Env{
			Scenario:  s,
			World:     world,
			Directory: dir,
			Loop:      sim.NewLoop(dir, cfg, logger),
		},
		catalog: r.catalog,
		logger:  logger,
		names:   make(map[actor.ID]string),
		report:  &Report{Name: s.Name},
		steps:   sortedByTime(s.Steps, func(st Step) float64 { return st.At }),
		expects: sortedByTime(s.Expect, func(e Expectation) float64 { return e.At }),
	}
	dir.OnAttach(x.observe)
	for _, a := range s.Actors {
		if err := x.spawn(a); err != nil {
			return nil, fmt.Errorf("scenario %s: %w", s.Name, err)
		}
	}
	if r.Setup != nil {
		teardown, err := r.Setup(x.Env)
		if err != nil {
			return nil, fmt.Errorf("scenario %s: setup: %w", s.Name, err)
		}
		x.teardown = teardown
	}
	return x, nil
}

// Run executes s in fixed steps and returns its report. Failing steps are
// recorded and do not stop the run; an error is returned only when the
// scenario cannot start.
//
// Postcondition: the returned report covers [0, s.Until].
func (r *Runner) Run(s *Scenario) (*Report, error) {
	x, err := r.Start(s)
	if err != nil {
		return nil, err
	}
	dt := x.Loop.FixedDelta()
	frames := int(math.Ceil(s.Until/dt - timeEpsilon))
	for k := 0; ; k++ {
		x.Due(float64(k) * dt)
		if k >= frames {
			break
		}
		x.Loop.Step(dt)
	}
	return x.Finish(), nil
}

// Due runs every step and checks every expectation scheduled at or before
// now, in time order.
func (x *Session) Due(now float64) {
	x.now = now
	for len(x.steps) > 0 && x.steps[0].At <= now+timeEpsilon {
		x.step(x.steps[0])
		x.steps = x.steps[1:]
	}
	for len(x.expects) > 0 && x.expects[0].At <= now+timeEpsilon {
		x.report.Results = append(x.report.Results, x.check(x.expects[0]))
		x.expects = x.expects[1:]
	}
}

// Pending reports whether any step or expectation is still scheduled.
func (x *Session) Pending() bool { return len(x.steps) > 0 || len(x.expects) > 0 }

// Finish fails every expectation that was never reached, runs the Setup
// teardown and returns the report. Call it once.
func (x *Session) Finish() *Report {
	for _, e := range x.expects {
		x.report.Results = append(x.report.Results, Result{
			Expectation: e,
			Time:        x.now,
			Failures:    []string{"not reached"},
		})
	}
	x.expects = nil
	if x.teardown != nil {
		x.teardown()
		x.teardown = nil
	}
	x.report.Frames = x.Loop.Frame()
	x.report.Elapsed = x.Loop.Elapsed()
	x.logger.Info("scenario finished",
		zap.Uint64("frames", x.report.Frames),
		zap.Int("records", len(x.report.Records)),
		zap.Int("failures", len(x.report.Failures())),
	)
	return x.report
}

// resolve checks every effect ID the scenario names against the catalog.
func (r *Runner) resolve(s *Scenario) error {
	var errs []error
	for _, id := range s.Effects() {
		if _, ok := r.catalog.Get(id); !ok {
			errs = append(errs, fmt.Errorf("unknown effect %q", id))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("scenario %s: %w", s.Name, errors.Join(errs...))
	}
	return nil
}

func sortedByTime[T any](in []T, at func(T) float64) []T {
	out := append([]T(nil), in...)
	sort.SliceStable(out, func(i, j int) bool { return at(out[i]) < at(out[j]) })
	return out
}

func (x *Session) observe(reg *effect.Registry) {
	target := x.names[reg.Target()]
	reg.OnApplied(func(_ *effect.Registry, inst *effect.Instance, instigator actor.ID) {
		x.record(Record{Kind: KindApplied, Actor: target, Effect: inst.Class().ID(), By: x.name(instigator)})
	})
	reg.OnRefreshed(func(_ *effect.Registry, inst *effect.Instance) {
		x.record(Record{Kind: KindRefreshed, Actor: target, Effect: inst.Class().ID(), Stacks: inst.CurrentStacks()})
	})
	reg.OnRemoved(func(_ *effect.Registry, inst *effect.Instance, remover actor.ID) {
		x.record(Record{Kind: KindRemoved, Actor: target, Effect: inst.Class().ID(), By: x.name(remover)})
	})
}

func (x *Session) record(rec Record) {
	rec.Time = x.now
	rec.Frame = x.Loop.Frame()
	x.report.Records = append(x.report.Records, rec)
	x.logger.Debug("scenario event",
		zap.String("kind", string(rec.Kind)),
		zap.String("actor", rec.Actor),
		zap.String("effect", rec.Effect),
		zap.Float64("time", rec.Time),
	)
}

func (x *Session) name(id actor.ID) string {
	if id.IsZero() {
		return ""
	}
	return x.names[id]
}

// id resolves a declared name to its live actor ID. The empty name is
// actor.None.
func (x *Session) id(name string) (actor.ID, error) {
	if name == "" {
		return actor.None, nil
	}
	a, ok := x.World.Lookup(name)
	if !ok {
		return actor.None, fmt.Errorf("actor %q does not exist", name)
	}
	return a.ID, nil
}

func (x *Session) spawn(spec ActorSpec) error {
	a, err := x.World.Spawn(spec.Name)
	if err != nil {
		return err
	}
	for k, v := range spec.Attributes {
		a.Attributes[k] = v
	}
	x.names[a.ID] = a.Name
	return nil
}

func (x *Session) step(st Step) {
	if err := x.exec(st); err != nil {
		kind := KindError
		if errors.Is(err, effect.ErrActivationRejected) {
			kind = KindRejected
		}
		rec := Record{Kind: kind, Detail: fmt.Sprintf("%s: %v", st.Kind(), err)}
		if st.Apply != nil {
			rec.Actor, rec.Effect, rec.By = st.Apply.Target, st.Apply.Effect, st.Apply.Instigator
		}
		x.record(rec)
	}
}

func (x *Session) exec(st Step) error {
	switch {
	case st.Apply != nil:
		return x.apply(st.Apply)
	case st.Remove != nil:
		class := x.catalog.MustGet(st.Remove.Effect)
		target, remover, err := x.pair(st.Remove.Target, st.Remove.Instigator)
		if err != nil {
			return err
		}
		if !status.Remove(x.Directory, target, class, remover) {
			return fmt.Errorf("%s has no %s", st.Remove.Target, class.ID())
		}
		return nil
	case st.RemoveAll != nil:
		n, err := x.bulk(st.RemoveAll, true)
		x.logger.Debug("scenario remove_all", zap.Int("removed", n))
		return err
	case st.RefreshAll != nil:
		n, err := x.bulk(st.RefreshAll, false)
		x.logger.Debug("scenario refresh_all", zap.Int("refreshed", n))
		return err
	case st.Stacks != nil:
		return x.stacks(st.Stacks)
	case st.Spawn != nil:
		if err := x.spawn(*st.Spawn); err != nil {
			return err
		}
		x.record(Record{Kind: KindSpawned, Actor: st.Spawn.Name})
		return nil
	case st.Destroy != "":
		id, err := x.id(st.Destroy)
		if err != nil {
			return err
		}
		x.record(Record{Kind: KindDestroyed, Actor: st.Destroy})
		x.World.Destroy(id)
		return nil
	case st.Pause:
		x.Loop.Pause()
		x.record(Record{Kind: KindPaused})
		return nil
	case st.Resume:
		x.Loop.Resume()
		x.record(Record{Kind: KindResumed})
		return nil
	}
	return errors.New("step has no action")
}

func (x *Session) pair(targetName, otherName string) (actor.ID, actor.ID, error) {
	target, err := x.id(targetName)
	if err != nil {
		return actor.None, actor.None, err
	}
	other, err := x.id(otherName)
	if err != nil {
		return actor.None, actor.None, err
	}
	return target, other, nil
}

func (x *Session) apply(ref *EffectRef) error {
	target, instigator, err := x.pair(ref.Target, ref.Instigator)
	if err != nil {
		return err
	}
	reg, err := x.Directory.Attach(target)
	if err != nil {
		return err
	}
	_, err = reg.Apply(x.catalog.MustGet(ref.Effect), instigator)
	return err
}

// bulk dispatches a remove_all or refresh_all selection to the matching
// query function.
func (x *Session) bulk(b *BulkRef, remove bool) (int, error) {
	target, instigator, err := x.pair(b.Target, b.Instigator)
	if err != nil {
		return 0, err
	}
	remover, err := x.id(b.Remover)
	if err != nil {
		return 0, err
	}
	var class *effect.Class
	if b.Effect != "" {
		class = x.catalog.MustGet(b.Effect)
	}
	byInstigator := b.Instigator != ""
	dir := x.Directory

	if remove {
		switch {
		case class != nil && byInstigator:
			return status.RemoveAllOfClassFromInstigator(dir, target, class, instigator, remover), nil
		case class != nil:
			return status.RemoveAllOfClass(dir, target, class, remover), nil
		case b.Type != nil && byInstigator:
			return status.RemoveAllOfTypeFromInstigator(dir, target, *b.Type, instigator, remover), nil
		case b.Type != nil:
			return status.RemoveAllOfType(dir, target, *b.Type, remover), nil
		case byInstigator:
			return status.RemoveAllFromInstigator(dir, target, instigator, remover), nil
		default:
			return status.RemoveAll(dir, target, remover), nil
		}
	}
	switch {
	case class != nil && byInstigator:
		return status.RefreshAllOfClassFromInstigator(dir, target, class, instigator), nil
	case class != nil:
		return status.RefreshAllOfClass(dir, target, class), nil
	case b.Type != nil && byInstigator:
		return status.RefreshAllOfTypeFromInstigator(dir, target, *b.Type, instigator), nil
	case b.Type != nil:
		return status.RefreshAllOfType(dir, target, *b.Type), nil
	case byInstigator:
		return status.RefreshAllFromInstigator(dir, target, instigator), nil
	default:
		return status.RefreshAll(dir, target), nil
	}
}

func (x *Session) stacks(c *StackChange) error {
	target, err := x.id(c.Target)
	if err != nil {
		return err
	}
	inst := status.Get(x.Directory, target, x.catalog.MustGet(c.Effect))
	if inst == nil {
		return fmt.Errorf("%s has no %s", c.Target, c.Effect)
	}
	var changed bool
	if c.Delta > 0 {
		changed = inst.IncreaseStacks(c.Delta)
	} else {
		changed = inst.DecreaseStacks(-c.Delta)
	}
	if !changed {
		return fmt.Errorf("stacks of %s on %s unchanged", c.Effect, c.Target)
	}
	return nil
}

func (x *Session) check(e Expectation) Result {
	res := Result{Expectation: e, Time: x.now}
	fail := func(format string, args ...any) {
		res.Failures = append(res.Failures, fmt.Sprintf(format, args...))
	}
	tol := e.Tolerance
	if tol <= 0 {
		tol = defaultTolerance
	}

	id, err := x.id(e.Actor)
	if err != nil && len(e.Attributes) > 0 {
		fail("%v", err)
	}

	if e.Effect != "" {
		inst := status.Get(x.Directory, id, x.catalog.MustGet(e.Effect))
		if e.Active != nil && *e.Active != (inst != nil) {
			fail("%s active: got %t, want %t", e.Effect, inst != nil, *e.Active)
		}
		if inst != nil {
			if e.Stacks != nil && inst.CurrentStacks() != *e.Stacks {
				fail("%s stacks: got %d, want %d", e.Effect, inst.CurrentStacks(), *e.Stacks)
			}
			if e.Remaining != nil && math.Abs(inst.RemainingTime()-*e.Remaining) > tol {
				fail("%s remaining: got %g, want %g", e.Effect, inst.RemainingTime(), *e.Remaining)
			}
			if e.Instigator != nil {
				got := x.name(inst.Instigator())
				want := *e.Instigator
				if want == "none" {
					want = ""
				}
				if got != want {
					fail("%s instigator: got %q, want %q", e.Effect, got, *e.Instigator)
				}
			}
		} else if e.Stacks != nil || e.Remaining != nil || e.Instigator != nil {
			if e.Active == nil || *e.Active {
				fail("%s is not active", e.Effect)
			}
		}
	}

	if err == nil {
		keys := make([]string, 0, len(e.Attributes))
		for k := range e.Attributes {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if got := x.World.Attribute(id, k); math.Abs(got-e.Attributes[k]) > tol {
				fail("%s: got %g, want %g", k, got, e.Attributes[k])
			}
		}
	}

	if !res.Passed() {
		x.logger.Warn("scenario expectation failed",
			zap.String("actor", e.Actor),
			zap.Float64("at", e.At),
			zap.Strings("failures", res.Failures),
		)
	}
	return res
}
