// Package config holds the handful of knobs the JIT core needs at
// startup: the profiler's hotness threshold, whether the JIT path is
// enabled at all, and the log level. The teacher reads GOGC directly
// from the environment for its hot run loop (gvm vm/run.go RunProgram);
// this package generalizes that "read a couple of env vars, fall back
// to sane defaults" idiom to this engine's own knobs, populated from
// COLDBREW_* environment variables rather than a config file format.
package config

import (
	"os"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/clflushopt/coldbrew/internal/profiler"
)

// Config is the engine's runtime configuration.
type Config struct {
	// HotnessThreshold is the profiler count a PC must exceed to be
	// considered hot. Defaults to profiler.DefaultThreshold.
	HotnessThreshold int
	// JITEnabled toggles whether the interpreter ever consults or
	// installs native traces.
	JITEnabled bool
	// LogLevel is the logrus level the engine's components log at.
	LogLevel logrus.Level
}

// Default returns the out-of-the-box configuration: JIT off, default
// hotness threshold, info-level logging.
func Default() Config {
	return Config{
		HotnessThreshold: profiler.DefaultThreshold,
		JITEnabled:       false,
		LogLevel:         logrus.InfoLevel,
	}
}

// FromEnv overlays COLDBREW_HOTNESS_THRESHOLD, COLDBREW_JIT, and
// COLDBREW_LOG_LEVEL onto Default(), mirroring the teacher's GOGC
// env-var override of an otherwise-fixed runtime setting. Malformed
// values are ignored and the default is kept.
func FromEnv() Config {
	cfg := Default()

	if raw := os.Getenv("COLDBREW_HOTNESS_THRESHOLD"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			cfg.HotnessThreshold = n
		}
	}
	if raw := os.Getenv("COLDBREW_JIT"); raw != "" {
		if b, err := strconv.ParseBool(raw); err == nil {
			cfg.JITEnabled = b
		}
	}
	if raw := os.Getenv("COLDBREW_LOG_LEVEL"); raw != "" {
		if lvl, err := logrus.ParseLevel(raw); err == nil {
			cfg.LogLevel = lvl
		}
	}
	return cfg
}

// Logger builds a package-level *logrus.Entry at cfg.LogLevel, threaded
// through construction by every component rather than read from a
// global singleton.
func (c Config) Logger(component string) *logrus.Entry {
	log := logrus.New()
	log.SetLevel(c.LogLevel)
	return log.WithField("component", component)
}
