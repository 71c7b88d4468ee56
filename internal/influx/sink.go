// Package influx ships sampled aircraft telemetry to InfluxDB. Writes go through a
// circuit breaker so an unreachable database costs one fast failure per sample
// instead of a timeout.
package influx

import (
	"context"
	"errors"
	"fmt"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"flight-dynamics/internal/sim"
)

const Measurement = "flight"

// Config holds the connection and sampling settings.
type Config struct {
	Enabled  bool
	URL      string
	Token    string
	Org      string
	Bucket   string
	Interval time.Duration // minimum spacing between samples
	Timeout  time.Duration // per write

	// Breaker opens after MaxFailures consecutive failed writes and probes again
	// after BreakerTimeout.
	MaxFailures    uint32
	BreakerTimeout time.Duration
}

// Writer is the blocking write API of the InfluxDB client.
type Writer interface {
	WritePoint(ctx context.Context, point ...*influxdb2_write.Point) error
}

// Subscriber is the source of state snapshots.
type Subscriber interface {
	Subscribe(ctx context.Context) (<-chan sim.AircraftState, func())
}

type Sink struct {
	w       Writer
	breaker *gobreaker.CircuitBreaker
	cfg     Config
	log     zerolog.Logger
	closer  func()
}

// Connect creates an InfluxDB client for cfg and a sink writing through it.
func Connect(cfg Config, log zerolog.Logger) (*Sink, error) {
	if !cfg.Enabled {
		return nil, errors.New("influx.enabled is false")
	}
	if cfg.URL == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("influx url and bucket are required")
	}

	opts := influxdb2.DefaultOptions()
	if cfg.Timeout > 0 {
		opts.SetHTTPRequestTimeout(uint(cfg.Timeout.Seconds() + 0.5))
	}
	client := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token, opts)

	s := NewSink(client.WriteAPIBlocking(cfg.Org, cfg.Bucket), cfg, log)
	s.closer = client.Close
	s.log.Info().Str("url", cfg.URL).Str("bucket", cfg.Bucket).Msg("InfluxDB sink initialized")
	return s, nil
}

// NewSink wraps w with sampling and a circuit breaker.
func NewSink(w Writer, cfg Config, log zerolog.Logger) *Sink {
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = 3
	}
	if cfg.BreakerTimeout <= 0 {
		cfg.BreakerTimeout = 30 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}

	s := &Sink{
		w:   w,
		cfg: cfg,
		log: log.With().Str("component", "influx").Logger(),
	}
	s.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "influx-sink",
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			s.log.Warn().Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state changed")
		},
	})
	return s
}

// Point converts a snapshot into the line written to InfluxDB.
func Point(st sim.AircraftState) *influxdb2_write.Point {
	return influxdb2.NewPoint(
		Measurement,
		map[string]string{"aircraft": st.Aircraft},
		map[string]interface{}{
			"throttle":     st.Throttle,
			"airspeed_kmh": st.HUD.AirspeedKmh,
			"altitude_m":   st.HUD.AltitudeM,
			"aoa_deg":      st.AngleOfAttackDeg,
			"lift_n":       st.LiftN,
			"thrust_n":     st.ThrustN,
			"lat":          st.Lat,
			"lon":          st.Lon,
		},
		st.TS,
	)
}

// Write sends one snapshot through the breaker.
func (s *Sink) Write(ctx context.Context, st sim.AircraftState) error {
	_, err := s.breaker.Execute(func() (interface{}, error) {
		wctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
		return nil, s.w.WritePoint(wctx, Point(st))
	})
	if err != nil {
		return fmt.Errorf("influx write: %w", err)
	}
	return nil
}

// Run samples snapshots from src, at most one per Interval of simulation time,
// until ctx is done or the subscription closes. Write errors are logged.
func (s *Sink) Run(ctx context.Context, src Subscriber) {
	ch, unsub := src.Subscribe(ctx)
	defer unsub()

	var last time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case st, ok := <-ch:
			if !ok {
				return
			}
			if !last.IsZero() && st.TS.Sub(last) < s.cfg.Interval {
				continue
			}
			last = st.TS

			if err := s.Write(ctx, st); err != nil {
				if errors.Is(err, gobreaker.ErrOpenState) {
					s.log.Trace().Msg("breaker open, sample skipped")
					continue
				}
				s.log.Error().Err(err).Uint64("tick", st.Tick).Msg("Error sending data to InfluxDB")
			}
		}
	}
}

// State reports the breaker state.
func (s *Sink) State() gobreaker.State { return s.breaker.State() }

// Close releases the client created by Connect.
func (s *Sink) Close() {
	if s.closer != nil {
		s.closer()
	}
}
