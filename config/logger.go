package config

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// NewLogger builds the process logger: a console writer for the "console"
// format, JSON lines otherwise. Unknown levels fall back to info.
func NewLogger(s Settings) zerolog.Logger {
	return newLogger(os.Stdout, s.LogFormat, s.LogLevel)
}

func newLogger(out io.Writer, format, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	if format == "console" {
		out = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: "15:04:05",
			FormatLevel: func(i interface{}) string {
				return strings.ToUpper(fmt.Sprintf("| %-6s|", i))
			},
		}
	}

	return zerolog.New(out).Level(lvl).With().Timestamp().Logger()
}
