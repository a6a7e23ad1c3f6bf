// Package logging wraps github.com/charmbracelet/log with the structured
// fields every log line in a PDP process carries: the pdpId and, once a
// subscription starts evaluating, its evaluationId.
package logging

import (
	"os"

	"github.com/charmbracelet/log"

	"github.com/sapl-run/sapl-core/config"
)

// New builds the process-wide logger for cfg, writing to stderr at the
// configured level. An unparsable level falls back to Info rather than
// failing startup over a logging knob.
func New(cfg *config.Config) *log.Logger {
	l := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true})
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = log.InfoLevel
	}
	l.SetLevel(level)
	return l.With("pdpId", cfg.PdpID, "configurationId", cfg.ConfigurationID)
}

// ForSubscription returns a child logger carrying evaluationId, so every
// line logged while evaluating one subscription can be correlated without
// threading the ID through every function signature.
func ForSubscription(l *log.Logger, evaluationID string) *log.Logger {
	return l.With("evaluationId", evaluationID)
}
