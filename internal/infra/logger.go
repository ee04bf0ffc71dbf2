package infra

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// SetupLogger configures the global zerolog logger. Development gets the
// console writer, production plain JSON. When path is set the output goes to
// a rotated file instead of stderr; the caller closes the returned io.Closer
// on exit.
func SetupLogger(env, level, path string) io.Closer {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	var out io.Writer = os.Stderr
	var closer io.Closer = nopCloser{}
	if path != "" {
		rotated := &lumberjack.Logger{
			Filename:   path,
			MaxSize:    10, // MB
			MaxBackups: 5,
			MaxAge:     30, // days
		}
		out, closer = rotated, rotated
	}

	if env == "production" {
		log.Logger = zerolog.New(out).With().Timestamp().Logger()
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339, NoColor: path != ""})
	}
	return closer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
