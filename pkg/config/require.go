package config

import (
	"log/slog"
	"os"
	"slices"
	"strings"
)

func fatal(msg string, args ...any) {
	slog.Error(msg, args...)
	os.Exit(1)
}

func MustNonEmpty(value, envName string) {
	if value == "" {
		fatal("missing required env", "env", envName)
	}
}

func MustNonEmptyBytes(value []byte, envName string) {
	if len(value) == 0 {
		fatal("missing required env", "env", envName)
	}
}

// MustOneOf exits unless value is one of allowed.
func MustOneOf(value, envName string, allowed ...string) {
	if !slices.Contains(allowed, value) {
		fatal("invalid env value", "env", envName, "value", value, "allowed", strings.Join(allowed, "|"))
	}
}
