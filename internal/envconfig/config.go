// Package envconfig reads Born settings from the environment.
//
// Every getter reads the environment on each call, so tests can use
// t.Setenv without resetting any package state.
package envconfig

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"strings"
)

// Validation levels accepted by BORN_VALIDATION.
const (
	ValidationStrict = "strict"
	ValidationNormal = "normal"
	ValidationNone   = "none"
)

// LogLevel returns the log level for the CLI. Configurable via BORN_DEBUG:
// a true value enables debug logs, an integer n sets the level to -4n.
func LogLevel() slog.Level {
	level := slog.LevelInfo
	if s := Var("BORN_DEBUG"); s != "" {
		if b, _ := strconv.ParseBool(s); b {
			level = slog.LevelDebug
		} else if i, _ := strconv.ParseInt(s, 10, 64); i != 0 {
			level = slog.Level(i * -4)
		}
	}

	return level
}

// Validation returns the .born header validation level. Configurable via
// BORN_VALIDATION. Default: strict.
func Validation() string {
	s := strings.ToLower(Var("BORN_VALIDATION"))
	switch s {
	case "":
		return ValidationStrict
	case ValidationStrict, ValidationNormal, ValidationNone:
		return s
	default:
		slog.Warn("invalid validation level, using default", "value", s, "default", ValidationStrict)
		return ValidationStrict
	}
}

// SkipChecksum skips SHA-256 verification when reading .born files.
// Configurable via BORN_SKIP_CHECKSUM.
var SkipChecksum = Bool("BORN_SKIP_CHECKSUM")

// NumThreads returns the number of goroutines used for row-parallel loops.
// Configurable via BORN_NUM_THREADS. Default: the number of CPUs.
func NumThreads() int {
	n := Uint("BORN_NUM_THREADS", 0)()
	if n == 0 {
		return runtime.NumCPU()
	}
	return int(n)
}

// BoolWithDefault returns a getter for a boolean variable. A set but
// unparsable value counts as true.
func BoolWithDefault(k string) func(defaultValue bool) bool {
	return func(defaultValue bool) bool {
		if s := Var(k); s != "" {
			b, err := strconv.ParseBool(s)
			if err != nil {
				return true
			}
			return b
		}
		return defaultValue
	}
}

// Bool returns a getter for a boolean variable that defaults to false.
func Bool(k string) func() bool {
	withDefault := BoolWithDefault(k)
	return func() bool {
		return withDefault(false)
	}
}

// Uint returns a getter for an unsigned integer variable. An unparsable
// value is logged and replaced by defaultValue.
func Uint(key string, defaultValue uint) func() uint {
	return func() uint {
		if s := Var(key); s != "" {
			if n, err := strconv.ParseUint(s, 10, 64); err != nil {
				slog.Warn("invalid environment variable, using default", "key", key, "value", s, "default", defaultValue)
			} else {
				return uint(n)
			}
		}
		return defaultValue
	}
}

// EnvVar describes one supported variable.
type EnvVar struct {
	Name        string
	Value       any
	Description string
}

// AsMap returns every supported variable with its current value.
func AsMap() map[string]EnvVar {
	return map[string]EnvVar{
		"BORN_DEBUG":         {"BORN_DEBUG", LogLevel(), "Show additional debug information (e.g. BORN_DEBUG=1)"},
		"BORN_VALIDATION":    {"BORN_VALIDATION", Validation(), "Header validation level for .born files: strict, normal or none (default: strict)"},
		"BORN_SKIP_CHECKSUM": {"BORN_SKIP_CHECKSUM", SkipChecksum(), "Skip SHA-256 verification of .born data sections"},
		"BORN_NUM_THREADS":   {"BORN_NUM_THREADS", NumThreads(), "Goroutines used by row-parallel layer math (default: number of CPUs)"},
	}
}

// Values returns the current value of every supported variable as a string.
func Values() map[string]string {
	vals := make(map[string]string)
	for k, v := range AsMap() {
		vals[k] = fmt.Sprintf("%v", v.Value)
	}
	return vals
}

// Var returns an environment variable with surrounding whitespace and quotes removed.
func Var(key string) string {
	return strings.Trim(strings.TrimSpace(os.Getenv(key)), "\"'")
}
