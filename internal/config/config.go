// Package config loads settings from defaults, an optional JSON or YAML file and
// FLIGHT_* environment variables, and hands them out as typed structs.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/spf13/viper"

	"flight-dynamics/internal/curve"
	"flight-dynamics/internal/env"
	"flight-dynamics/internal/flight"
	"flight-dynamics/internal/influx"
	"flight-dynamics/internal/logging"
	"flight-dynamics/internal/sim"
)

const EnvPrefix = "FLIGHT"

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Host string
	Port int
}

// Addr returns the listen address.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// EnvConfig holds the environmental effects.
type EnvConfig struct {
	Wind    env.Wind
	Terrain env.Terrain
}

// Environment chains wind drift before the terrain floor.
func (c EnvConfig) Environment() env.Environment {
	return &env.Chain{Effects: []env.Environment{c.Wind, c.Terrain}}
}

// SetDefaults registers every default value.
func SetDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("server.host", "")
	viper.SetDefault("server.port", 8080)

	viper.SetDefault("sim.aircraft", "aircraft-1")
	viper.SetDefault("sim.tickHz", sim.DefaultTickHz)
	viper.SetDefault("sim.originLat", 32.0853)
	viper.SetDefault("sim.originLon", 34.7818)
	viper.SetDefault("sim.throttleIncrement", sim.DefaultThrottleIncrement)
	viper.SetDefault("sim.startAltitudeM", 0.0)
	viper.SetDefault("sim.startHeadingDeg", 0.0)
	viper.SetDefault("sim.gravity", 9.81)

	af := sim.DefaultAirframe()
	viper.SetDefault("airframe.mass", af.Mass)
	viper.SetDefault("airframe.inertia", []float64{af.Inertia[0], af.Inertia[1], af.Inertia[2]})
	viper.SetDefault("airframe.linearDrag", af.LinearDrag)
	viper.SetDefault("airframe.angularDrag", af.AngularDrag)

	fp := flight.DefaultParams()
	viper.SetDefault("flight.maxThrust", fp.MaxThrust)
	viper.SetDefault("flight.sensitivity", fp.Sensitivity)
	viper.SetDefault("flight.liftPower", fp.LiftPower)
	viper.SetDefault("flight.aoaGuard", fp.AoAGuard)
	viper.SetDefault("flight.liftGuard", fp.LiftGuard)
	viper.SetDefault("flight.liftModel", string(fp.LiftModel))

	keys := make([]map[string]interface{}, 0, len(curve.DefaultLiftKeys))
	for _, k := range curve.DefaultLiftKeys {
		keys = append(keys, map[string]interface{}{"deg": k.Deg, "coefficient": k.Coefficient})
	}
	viper.SetDefault("flight.liftCurve", keys)

	viper.SetDefault("env.wind.speed", 0.0)
	viper.SetDefault("env.wind.directionDeg", 0.0)
	viper.SetDefault("env.terrain.safetyMarginM", 0.0)
	viper.SetDefault("env.terrain.waveAmplitudeM", 0.0)

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.url", "http://localhost:8086")
	viper.SetDefault("influx.token", "")
	viper.SetDefault("influx.org", "flight")
	viper.SetDefault("influx.bucket", "telemetry")
	viper.SetDefault("influx.interval", "1s")
	viper.SetDefault("influx.timeout", "5s")
	viper.SetDefault("influx.maxFailures", 3)
	viper.SetDefault("influx.breakerTimeout", "30s")
}

// Load sets defaults, binds the environment and reads file when it is not empty.
func Load(file string) error {
	SetDefaults()

	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if file != "" {
		viper.SetConfigFile(file)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	return Validate()
}

// Validate checks the values the simulation cannot run without.
func Validate() error {
	if viper.GetFloat64("sim.tickHz") <= 0 {
		return fmt.Errorf("%w: sim.tickHz must be positive", ErrInvalid)
	}
	if viper.GetFloat64("airframe.mass") <= 0 {
		return fmt.Errorf("%w: airframe.mass must be positive", ErrInvalid)
	}
	if _, err := inertia(); err != nil {
		return err
	}
	switch flight.LiftModel(viper.GetString("flight.liftModel")) {
	case flight.LiftCurve, flight.LiftLegacy:
	default:
		return fmt.Errorf("%w: unknown flight.liftModel %q", ErrInvalid, viper.GetString("flight.liftModel"))
	}
	if _, err := GetLiftCurve(); err != nil {
		return err
	}
	if viper.GetDuration("influx.interval") < 0 {
		return fmt.Errorf("%w: influx.interval must not be negative", ErrInvalid)
	}
	return nil
}

// ConfigFile returns the file read by Load, if any.
func ConfigFile() string {
	return viper.ConfigFileUsed()
}

func inertia() (mgl64.Vec3, error) {
	var v []float64
	if err := viper.UnmarshalKey("airframe.inertia", &v); err != nil {
		return mgl64.Vec3{}, fmt.Errorf("%w: airframe.inertia: %v", ErrInvalid, err)
	}
	if len(v) != 3 {
		return mgl64.Vec3{}, fmt.Errorf("%w: airframe.inertia needs 3 values, got %d", ErrInvalid, len(v))
	}
	return mgl64.Vec3{v[0], v[1], v[2]}, nil
}

func GetServerConfig() ServerConfig {
	return ServerConfig{
		Host: viper.GetString("server.host"),
		Port: viper.GetInt("server.port"),
	}
}

// GetSimConfig returns the engine settings. Airframe, flight model, curve and
// environment are filled in from their own sections.
func GetSimConfig() (sim.Config, error) {
	af, err := GetAirframeConfig()
	if err != nil {
		return sim.Config{}, err
	}
	c, err := GetLiftCurve()
	if err != nil {
		return sim.Config{}, err
	}

	return sim.Config{
		Aircraft:          viper.GetString("sim.aircraft"),
		OriginLat:         viper.GetFloat64("sim.originLat"),
		OriginLon:         viper.GetFloat64("sim.originLon"),
		TickHz:            viper.GetFloat64("sim.tickHz"),
		ThrottleIncrement: viper.GetFloat64("sim.throttleIncrement"),
		StartPosition:     mgl64.Vec3{0, viper.GetFloat64("sim.startAltitudeM"), 0},
		StartHeadingDeg:   viper.GetFloat64("sim.startHeadingDeg"),
		Gravity:           mgl64.Vec3{0, -viper.GetFloat64("sim.gravity"), 0},
		Airframe:          af,
		Flight:            GetFlightConfig(),
		LiftCurve:         c,
		Environment:       GetEnvConfig().Environment(),
	}, nil
}

func GetAirframeConfig() (sim.Airframe, error) {
	in, err := inertia()
	if err != nil {
		return sim.Airframe{}, err
	}
	return sim.Airframe{
		Mass:        viper.GetFloat64("airframe.mass"),
		Inertia:     in,
		LinearDrag:  viper.GetFloat64("airframe.linearDrag"),
		AngularDrag: viper.GetFloat64("airframe.angularDrag"),
	}, nil
}

func GetFlightConfig() flight.Params {
	return flight.Params{
		MaxThrust:   viper.GetFloat64("flight.maxThrust"),
		Sensitivity: viper.GetFloat64("flight.sensitivity"),
		LiftPower:   viper.GetFloat64("flight.liftPower"),
		AoAGuard:    viper.GetFloat64("flight.aoaGuard"),
		LiftGuard:   viper.GetFloat64("flight.liftGuard"),
		LiftModel:   flight.LiftModel(viper.GetString("flight.liftModel")),
	}
}

// GetLiftCurve builds the lift coefficient table from flight.liftCurve.
func GetLiftCurve() (*curve.Table, error) {
	var keys []curve.Key
	if err := viper.UnmarshalKey("flight.liftCurve", &keys); err != nil {
		return nil, fmt.Errorf("%w: flight.liftCurve: %v", ErrInvalid, err)
	}
	t, err := curve.NewTable(keys)
	if err != nil {
		return nil, fmt.Errorf("%w: flight.liftCurve: %w", ErrInvalid, err)
	}
	return t, nil
}

func GetEnvConfig() EnvConfig {
	return EnvConfig{
		Wind: env.FromSpeedAndDir(
			viper.GetFloat64("env.wind.speed"),
			viper.GetFloat64("env.wind.directionDeg"),
		),
		Terrain: env.Terrain{
			SafetyMarginM:  viper.GetFloat64("env.terrain.safetyMarginM"),
			WaveAmplitudeM: viper.GetFloat64("env.terrain.waveAmplitudeM"),
		},
	}
}

func GetInfluxConfig() influx.Config {
	return influx.Config{
		Enabled:        viper.GetBool("influx.enabled"),
		URL:            viper.GetString("influx.url"),
		Token:          viper.GetString("influx.token"),
		Org:            viper.GetString("influx.org"),
		Bucket:         viper.GetString("influx.bucket"),
		Interval:       viper.GetDuration("influx.interval"),
		Timeout:        viper.GetDuration("influx.timeout"),
		MaxFailures:    viper.GetUint32("influx.maxFailures"),
		BreakerTimeout: viper.GetDuration("influx.breakerTimeout"),
	}
}

func GetLogConfig() logging.Options {
	return logging.Options{
		Level:          viper.GetString("logLevel"),
		GraylogEnabled: viper.GetBool("graylog.enabled"),
		GraylogAddress: viper.GetString("graylog.address"),
	}
}
