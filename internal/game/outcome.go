package game

import (
	"strings"

	"github.com/user/frontline-missions/internal/types"
)

// Calibration points carried over from the tuned rule set
const (
	DefaultOutcomeMargin  = 5
	DefaultResolutionTurn = 7
)

// OutcomeDetector scores narrative text against weighted phrase tables
type OutcomeDetector struct {
	tables         *Tables
	margin         int
	resolutionTurn int
}

// NewOutcomeDetector creates a detector with the given hysteresis margin and resolution turn
func NewOutcomeDetector(tables *Tables, margin, resolutionTurn int) *OutcomeDetector {
	if tables == nil {
		tables = DefaultTables()
	}
	return &OutcomeDetector{
		tables:         tables,
		margin:         margin,
		resolutionTurn: resolutionTurn,
	}
}

// Scores returns the summed success and failure weights found in text
func (d *OutcomeDetector) Scores(text string) (success, failure int) {
	lower := strings.ToLower(text)
	for _, p := range d.tables.SuccessPhrases {
		if strings.Contains(lower, p.Phrase) {
			success += p.Weight
		}
	}
	for _, p := range d.tables.FailurePhrases {
		if strings.Contains(lower, p.Phrase) {
			failure += p.Weight
		}
	}
	return success, failure
}

// Detect decides whether the accumulated text ends the mission
func (d *OutcomeDetector) Detect(text string, turnCount int) types.Verdict {
	if strings.TrimSpace(text) == "" {
		return types.VerdictNone
	}

	success, failure := d.Scores(text)
	switch {
	case success > failure+d.margin:
		return types.VerdictSuccess
	case failure > success+d.margin:
		return types.VerdictFailure
	}

	// Long missions get forced to a verdict
	if turnCount >= d.resolutionTurn {
		lower := strings.ToLower(text)
		if containsAny(lower, d.tables.ResolutionSuccess) {
			return types.VerdictSuccess
		}
		if containsAny(lower, d.tables.ResolutionFailure) {
			return types.VerdictFailure
		}
	}
	return types.VerdictNone
}
