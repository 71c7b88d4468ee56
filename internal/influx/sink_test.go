package influx

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flight-dynamics/internal/hud"
	"flight-dynamics/internal/sim"
)

type fakeWriter struct {
	mu     sync.Mutex
	points []*influxdb2_write.Point
	calls  int
	err    error
}

func (f *fakeWriter) WritePoint(ctx context.Context, point ...*influxdb2_write.Point) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return f.err
	}
	f.points = append(f.points, point...)
	return nil
}

func (f *fakeWriter) snapshot() (int, []*influxdb2_write.Point) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls, append([]*influxdb2_write.Point(nil), f.points...)
}

type chanSource chan sim.AircraftState

func (c chanSource) Subscribe(ctx context.Context) (<-chan sim.AircraftState, func()) {
	return c, func() {}
}

func sampleState(ts time.Time) sim.AircraftState {
	return sim.AircraftState{
		Aircraft:         "N123",
		Lat:              32.1,
		Lon:              34.8,
		AngleOfAttackDeg: 4.5,
		Throttle:         70,
		ThrustN:          14000,
		LiftN:            9000,
		HUD:              hud.Telemetry{ThrottlePct: 70, AirspeedKmh: 216, AltitudeM: 850},
		TS:               ts,
	}
}

func TestPoint(t *testing.T) {
	ts := time.Unix(1700000000, 0)
	p := Point(sampleState(ts))

	assert.Equal(t, Measurement, p.Name())
	assert.Equal(t, ts, p.Time())

	tags := map[string]string{}
	for _, tag := range p.TagList() {
		tags[tag.Key] = tag.Value
	}
	assert.Equal(t, map[string]string{"aircraft": "N123"}, tags)

	fields := map[string]interface{}{}
	for _, f := range p.FieldList() {
		fields[f.Key] = f.Value
	}
	assert.Equal(t, map[string]interface{}{
		"throttle":     70.0,
		"airspeed_kmh": 216.0,
		"altitude_m":   850.0,
		"aoa_deg":      4.5,
		"lift_n":       9000.0,
		"thrust_n":     14000.0,
		"lat":          32.1,
		"lon":          34.8,
	}, fields)
}

func TestSink_Write(t *testing.T) {
	w := &fakeWriter{}
	s := NewSink(w, Config{}, zerolog.Nop())

	require.NoError(t, s.Write(context.Background(), sampleState(time.Unix(1, 0))))

	calls, points := w.snapshot()
	assert.Equal(t, 1, calls)
	require.Len(t, points, 1)
	assert.Equal(t, Measurement, points[0].Name())
}

func TestSink_BreakerOpens(t *testing.T) {
	w := &fakeWriter{err: errors.New("connection refused")}
	s := NewSink(w, Config{MaxFailures: 2, BreakerTimeout: time.Hour}, zerolog.Nop())
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		err := s.Write(ctx, sampleState(time.Unix(int64(i), 0)))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "connection refused")
	}
	assert.Equal(t, gobreaker.StateOpen, s.State())

	err := s.Write(ctx, sampleState(time.Unix(3, 0)))
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)

	calls, _ := w.snapshot()
	assert.Equal(t, 2, calls, "open breaker does not reach the writer")
}

func TestSink_RunSamples(t *testing.T) {
	w := &fakeWriter{}
	s := NewSink(w, Config{Interval: 500 * time.Millisecond}, zerolog.Nop())

	base := time.Unix(1000, 0)
	src := make(chanSource, 8)
	for _, ms := range []int{0, 100, 499, 600, 900, 1100, 1200} {
		src <- sampleState(base.Add(time.Duration(ms) * time.Millisecond))
	}
	close(src)

	s.Run(context.Background(), src)

	_, points := w.snapshot()
	require.Len(t, points, 3)
	assert.Equal(t, base, points[0].Time())
	assert.Equal(t, base.Add(600*time.Millisecond), points[1].Time())
	assert.Equal(t, base.Add(1100*time.Millisecond), points[2].Time())
}

func TestSink_RunKeepsGoingOnErrors(t *testing.T) {
	w := &fakeWriter{err: errors.New("timeout")}
	s := NewSink(w, Config{MaxFailures: 2, BreakerTimeout: time.Hour}, zerolog.Nop())

	src := make(chanSource, 5)
	for i := 0; i < 5; i++ {
		src <- sampleState(time.Unix(int64(i), 0))
	}
	close(src)

	s.Run(context.Background(), src)

	calls, _ := w.snapshot()
	assert.Equal(t, 2, calls)
	assert.Equal(t, gobreaker.StateOpen, s.State())
}

func TestSink_RunStopsOnCancel(t *testing.T) {
	s := NewSink(&fakeWriter{}, Config{}, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		s.Run(ctx, make(chanSource))
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestConnect_Validation(t *testing.T) {
	_, err := Connect(Config{}, zerolog.Nop())
	assert.Error(t, err)

	_, err = Connect(Config{Enabled: true}, zerolog.Nop())
	assert.Error(t, err)

	s, err := Connect(Config{Enabled: true, URL: "http://localhost:8086", Bucket: "flight"}, zerolog.Nop())
	require.NoError(t, err)
	s.Close()
}
