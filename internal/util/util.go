// Package util provides small helpers shared across the Fluvius client:
// proxy-aware HTTP client setup, log level management, and token handling.
package util

import (
	"strings"

	"github.com/gvnuland/Fluvius-API/internal/config"
	log "github.com/sirupsen/logrus"
)

// SetLogLevel applies the configured verbosity to the global logger. Quiet
// wins over debug when both are set.
func SetLogLevel(cfg *config.Config) {
	newLevel := log.InfoLevel
	if cfg.Debug {
		newLevel = log.DebugLevel
	}
	if cfg.Quiet {
		newLevel = log.WarnLevel
	}

	if currentLevel := log.GetLevel(); currentLevel != newLevel {
		log.SetLevel(newLevel)
		log.Debugf("log level changed from %s to %s", currentLevel, newLevel)
	}
}

// StripBearerPrefix removes an optional "Bearer " prefix from a token pasted
// straight out of browser dev tools.
func StripBearerPrefix(token string) string {
	trimmed := strings.TrimSpace(token)
	if len(trimmed) >= 7 && strings.EqualFold(trimmed[:7], "bearer ") {
		return strings.TrimSpace(trimmed[7:])
	}
	return trimmed
}
