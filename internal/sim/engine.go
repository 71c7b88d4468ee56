package sim

import (
	"context"
	"fmt"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/rs/zerolog"

	"flight-dynamics/internal/curve"
	"flight-dynamics/internal/env"
	"flight-dynamics/internal/flight"
	"flight-dynamics/internal/geometry/vector"
	"flight-dynamics/internal/hud"
	"flight-dynamics/internal/rigidbody"
)

const (
	DefaultTickHz            = 50
	DefaultThrottleIncrement = 0.1
)

type stateReq struct {
	reply chan AircraftState
}

type subscribeReq struct {
	ch chan AircraftState
}

// Airframe describes the rigid body the flight model drives.
type Airframe struct {
	Mass        float64    `mapstructure:"mass"`
	Inertia     mgl64.Vec3 `mapstructure:"inertia"`
	LinearDrag  float64    `mapstructure:"linearDrag"`
	AngularDrag float64    `mapstructure:"angularDrag"`
}

// DefaultAirframe is a one-tonne light aircraft.
func DefaultAirframe() Airframe {
	return Airframe{
		Mass:        1000,
		Inertia:     mgl64.Vec3{8000, 10000, 4000},
		LinearDrag:  0.2,
		AngularDrag: 3,
	}
}

type Config struct {
	Aircraft  string
	OriginLat float64
	OriginLon float64
	TickHz    float64

	// ThrottleIncrement is the percent added per ThrottleCommand step.
	ThrottleIncrement float64

	StartPosition   mgl64.Vec3
	StartHeadingDeg float64

	// Gravity defaults to rigidbody.StandardGravity when zero.
	Gravity mgl64.Vec3

	Airframe  Airframe
	Flight    flight.Params
	LiftCurve curve.Curve

	Environment env.Environment
	Logger      zerolog.Logger
}

type Engine struct {
	geo  GeoRef
	name string

	// Actor channels
	cmdCh       chan Command
	stateReqCh  chan stateReq
	subscribeCh chan subscribeReq
	unsubCh     chan chan AircraftState

	tickHz  float64
	cfg     Config
	log     zerolog.Logger
	metrics *engineMetrics
}

func New(cfg Config) (*Engine, error) {
	if cfg.TickHz <= 0 {
		cfg.TickHz = DefaultTickHz
	}
	if cfg.ThrottleIncrement <= 0 {
		cfg.ThrottleIncrement = DefaultThrottleIncrement
	}
	if cfg.Aircraft == "" {
		cfg.Aircraft = "aircraft-1"
	}
	if cfg.Gravity == (mgl64.Vec3{}) {
		cfg.Gravity = rigidbody.StandardGravity
	}
	if cfg.Airframe.Mass <= 0 {
		cfg.Airframe = DefaultAirframe()
	}
	if cfg.Flight == (flight.Params{}) {
		cfg.Flight = flight.DefaultParams()
	}

	e := &Engine{
		geo:         GeoRef{OriginLat: cfg.OriginLat, OriginLon: cfg.OriginLon},
		name:        cfg.Aircraft,
		cmdCh:       make(chan Command, 128),
		stateReqCh:  make(chan stateReq, 32),
		subscribeCh: make(chan subscribeReq, 32),
		unsubCh:     make(chan chan AircraftState, 32),
		tickHz:      cfg.TickHz,
		cfg:         cfg,
		log:         cfg.Logger.With().Str("component", "sim").Str("aircraft", cfg.Aircraft).Logger(),
	}

	m, err := newEngineMetrics(cfg.Aircraft, func() int { return len(e.cmdCh) })
	if err != nil {
		return nil, fmt.Errorf("sim metrics: %w", err)
	}
	e.metrics = m
	return e, nil
}

// Aircraft returns the name the engine publishes its snapshots under.
func (e *Engine) Aircraft() string { return e.name }

// Submit queues a command for the next loop iteration. It never blocks; when the
// queue is full the command is dropped.
func (e *Engine) Submit(cmd Command) {
	select {
	case e.cmdCh <- cmd:
	default:
		e.metrics.dropped.Add(context.Background(), 1, e.metrics.attrs)
		e.log.Warn().Str("command", string(cmd.Type())).Msg("command queue full, dropping")
	}
}

func (e *Engine) GetState(ctx context.Context) (AircraftState, error) {
	req := stateReq{reply: make(chan AircraftState, 1)}
	select {
	case e.stateReqCh <- req:
	case <-ctx.Done():
		return AircraftState{}, ctx.Err()
	}

	select {
	case st := <-req.reply:
		return st, nil
	case <-ctx.Done():
		return AircraftState{}, ctx.Err()
	}
}

// Subscribe returns a channel receiving every published snapshot, starting with
// the current one. Frames are dropped for a subscriber that falls behind. The
// channel is closed after unsubscribe or when Run returns.
func (e *Engine) Subscribe(ctx context.Context) (<-chan AircraftState, func()) {
	ch := make(chan AircraftState, 32)

	select {
	case e.subscribeCh <- subscribeReq{ch: ch}:
	case <-ctx.Done():
		close(ch)
		return ch, func() {}
	}

	unsub := func() {
		select {
		case e.unsubCh <- ch:
		default:
		}
	}
	return ch, unsub
}

// Run owns the aircraft and steps it at the configured rate until ctx is done.
func (e *Engine) Run(ctx context.Context) error {
	ac := newAircraft(e.cfg, e.geo)
	now := time.Now()
	dt := 1.0 / e.tickHz

	subs := map[chan AircraftState]struct{}{}

	publish := func(st AircraftState) {
		for ch := range subs {
			select {
			case ch <- st:
			default:
				// slow subscriber -> drop frame
			}
		}
	}

	tick := time.NewTicker(time.Duration(float64(time.Second) / e.tickHz))
	defer tick.Stop()

	e.log.Info().Float64("tickHz", e.tickHz).
		Float64("originLat", e.geo.OriginLat).
		Float64("originLon", e.geo.OriginLon).
		Msg("simulation started")

	for {
		select {
		case <-ctx.Done():
			for ch := range subs {
				close(ch)
			}
			e.log.Info().Uint64("ticks", ac.tick).Msg("simulation stopped")
			return nil

		case req := <-e.subscribeCh:
			subs[req.ch] = struct{}{}
			req.ch <- ac.snapshot(now)

		case ch := <-e.unsubCh:
			if _, ok := subs[ch]; ok {
				delete(subs, ch)
				close(ch)
			}

		case req := <-e.stateReqCh:
			req.reply <- ac.snapshot(now)

		case cmd := <-e.cmdCh:
			ac.apply(cmd)
			e.log.Debug().Str("command", string(cmd.Type())).
				Float64("throttle", ac.throttle).
				Msg("command applied")

		case t := <-tick.C:
			now = t
			start := time.Now()

			prevWarning := ac.warning
			ac.step(dt)
			if ac.warning != "" && ac.warning != prevWarning {
				e.log.Debug().Str("warning", ac.warning).Msg("environment warning")
			}

			e.metrics.steps.Add(ctx, 1, e.metrics.attrs)
			e.metrics.stepDuration.Record(ctx, float64(time.Since(start).Microseconds())/1000, e.metrics.attrs)

			publish(ac.snapshot(now))
		}
	}
}

// aircraft is the state owned by the Run goroutine.
type aircraft struct {
	name string
	geo  GeoRef

	model *flight.Model
	body  *rigidbody.Body
	env   env.Environment

	gravity       mgl64.Vec3
	increment     float64
	startPosition mgl64.Vec3
	startRotation mgl64.Quat

	throttle float64
	controls Controls
	forces   flight.Forces
	tick     uint64
	warning  string
}

func newAircraft(cfg Config, geo GeoRef) *aircraft {
	body := rigidbody.New(cfg.Airframe.Mass, cfg.Airframe.Inertia)
	body.LinearDrag = cfg.Airframe.LinearDrag
	body.AngularDrag = cfg.Airframe.AngularDrag

	ac := &aircraft{
		name:          cfg.Aircraft,
		geo:           geo,
		model:         flight.New(cfg.Flight, cfg.LiftCurve),
		body:          body,
		env:           cfg.Environment,
		gravity:       cfg.Gravity,
		increment:     cfg.ThrottleIncrement,
		startPosition: cfg.StartPosition,
		startRotation: mgl64.QuatRotate(mgl64.DegToRad(cfg.StartHeadingDeg), vector.AxisUp),
	}
	ac.reset()
	return ac
}

func (a *aircraft) reset() {
	a.body.Reset(a.startPosition, a.startRotation)
	a.throttle = 0
	a.controls = Controls{}
	a.forces = flight.Forces{}
	a.warning = ""
	a.model.DeriveState(a.body.Orientation, a.body.Velocity)
}

func (a *aircraft) apply(cmd Command) {
	switch c := cmd.(type) {
	case ControlsCommand:
		a.controls = Controls{
			Roll:  mgl64.Clamp(c.Roll, -1, 1),
			Pitch: mgl64.Clamp(c.Pitch, -1, 1),
			Yaw:   mgl64.Clamp(c.Yaw, -1, 1),
		}
	case ThrottleCommand:
		a.throttle = mgl64.Clamp(a.throttle+c.Steps*a.increment, 0, 100)
	case SetThrottleCommand:
		a.throttle = mgl64.Clamp(c.Percent, 0, 100)
	case StopCommand:
		a.throttle = 0
		a.controls = Controls{}
	case ResetCommand:
		a.reset()
	}
}

// step runs one fixed step: forces, integration, environment, post-step state.
func (a *aircraft) step(dt float64) {
	in := flight.ControlInputs{
		Throttle: a.throttle,
		Roll:     a.controls.Roll,
		Pitch:    a.controls.Pitch,
		Yaw:      a.controls.Yaw,
	}

	f := a.model.Step(a.body.State(), in)
	a.body.AddForce(f.Force())
	a.body.AddTorque(f.Torque())
	a.body.Integrate(dt, a.gravity)

	a.warning = ""
	if a.env != nil {
		pos, vel, warn := a.env.Apply(dt, a.body.Position, a.body.Velocity)
		a.body.Position, a.body.Velocity = pos, vel
		a.warning = warn
	}

	a.model.DeriveState(a.body.Orientation, a.body.Velocity)
	a.forces = f
	a.tick++
}

func (a *aircraft) snapshot(ts time.Time) AircraftState {
	pos := a.body.Position
	s := a.model.State()
	lat, lon, alt := a.geo.LocalToGeo(pos)
	heading, pitch, bank := Attitude(a.body.Orientation)
	tel := hud.Project(a.throttle, s.Velocity, pos)

	return AircraftState{
		Aircraft:         a.name,
		Lat:              lat,
		Lon:              lon,
		Alt:              alt,
		Position:         pos,
		Velocity:         s.Velocity,
		LocalVelocity:    s.LocalVelocity,
		AngleOfAttackDeg: s.AngleOfAttackDeg(),
		HeadingDeg:       heading,
		PitchDeg:         pitch,
		BankDeg:          bank,
		Throttle:         a.throttle,
		Controls:         a.controls,
		ThrustN:          a.forces.Thrust.Len(),
		LiftN:            a.forces.Lift.Len(),
		HUD:              tel,
		HUDText:          tel.Text(),
		Tick:             a.tick,
		TS:               ts,
		Warning:          a.warning,
	}
}
