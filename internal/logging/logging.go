// Package logging builds the process logger: human-readable console output and,
// when configured, structured records shipped to Graylog over GELF.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/Graylog2/go-gelf/gelf"
	"github.com/rs/zerolog"
)

// Options configure Setup.
type Options struct {
	Level   string
	Console io.Writer // defaults to os.Stdout
	NoColor bool

	GraylogEnabled bool
	GraylogAddress string
}

// ParseLevel maps a level name to a zerolog level. Unknown names give info.
func ParseLevel(name string) zerolog.Level {
	switch strings.ToUpper(name) {
	case "TRACE":
		return zerolog.TraceLevel
	case "DEBUG":
		return zerolog.DebugLevel
	case "INFO":
		return zerolog.InfoLevel
	case "WARN":
		return zerolog.WarnLevel
	case "ERROR":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Setup returns the root logger and a function closing any remote writer.
// The level is applied to the returned logger only, never globally.
func Setup(opts Options) (zerolog.Logger, func() error, error) {
	zerolog.TimestampFunc = func() time.Time {
		return time.Now().UTC()
	}

	out := opts.Console
	if out == nil {
		out = os.Stdout
	}

	writers := []io.Writer{
		zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339,
			NoColor:    opts.NoColor,
		},
	}

	closer := func() error { return nil }
	if opts.GraylogEnabled {
		gw, err := gelf.NewWriter(opts.GraylogAddress)
		if err != nil {
			return zerolog.Nop(), closer, fmt.Errorf("graylog writer %s: %w", opts.GraylogAddress, err)
		}
		writers = append(writers, gw)
		closer = gw.Close
	}

	logger := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(ParseLevel(opts.Level)).
		With().Timestamp().Logger()

	logger.Debug().Str("loglevel", logger.GetLevel().String()).
		Bool("graylog", opts.GraylogEnabled).
		Msg("Logging set up")
	return logger, closer, nil
}
