package logger

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/determined-ai/trialview/pkg/check"
)

// Format selects how log lines are rendered.
type Format string

const (
	// TextFormat renders key=value lines for terminals.
	TextFormat Format = "text"
	// JSONFormat renders one JSON object per line for log shippers.
	JSONFormat Format = "json"
)

// Config is the configuration of logger.
type Config struct {
	Level  string `json:"level"`
	Color  bool   `json:"color"`
	Format Format `json:"format"`
}

// DefaultConfig returns the default configuration of logger.
func DefaultConfig() *Config {
	return &Config{
		Level:  "info",
		Color:  true,
		Format: TextFormat,
	}
}

// Validate implements the check.Validatable interface.
func (c Config) Validate() []error {
	var errs []error
	if _, err := logrus.ParseLevel(c.Level); err != nil {
		errs = append(errs, err)
	}
	if err := check.Contains(c.Format, []Format{TextFormat, JSONFormat}, "log format"); err != nil {
		errs = append(errs, err)
	}
	return errs
}

// Formatter builds the logrus formatter c describes.
func (c Config) Formatter() logrus.Formatter {
	if c.Format == JSONFormat {
		return &logrus.JSONFormatter{}
	}
	return &logrus.TextFormatter{
		FullTimestamp: true,
		ForceColors:   c.Color,
		DisableColors: !c.Color,
	}
}

// SetLogrus applies c to the standard logger. c must already be valid.
func SetLogrus(c Config) {
	level, err := logrus.ParseLevel(c.Level)
	if err != nil {
		panic(fmt.Sprintf("invalid log level: %s", c.Level))
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(c.Formatter())
}
