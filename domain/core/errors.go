package core

import (
	"errors"

	crdb "github.com/cockroachdb/errors"
)

// Domain errors - centralized error kinds for the QCA engine
var (
	ErrInvalidCalibrationSpec     = errors.New("invalid calibration spec")
	ErrInsufficientData           = errors.New("insufficient data for analysis")
	ErrUnresolvableContradiction  = errors.New("unresolvable contradiction")
	ErrCombinatorialLimitExceeded = errors.New("combinatorial limit exceeded")

	// ErrDegenerateDenominator never leaves the metrics layer; ratios with a
	// zero denominator evaluate to 0.0 instead.
	ErrDegenerateDenominator = errors.New("degenerate denominator")
)

// NewInvalidCalibrationSpecError reports a calibration spec or threshold that
// cannot be corrected locally.
func NewInvalidCalibrationSpecError(field, reason string) error {
	return crdb.Wrapf(ErrInvalidCalibrationSpec, "%s: %s", field, reason)
}

// NewInsufficientDataError reports an analysis with too few cases or conditions.
func NewInsufficientDataError(conditions, cases int) error {
	err := crdb.Wrapf(ErrInsufficientData, "%d conditions, %d cases (need at least 2 conditions and 1 case)", conditions, cases)
	return crdb.WithHint(err, "add conditions or cases before building a truth table")
}

// NewUnresolvableContradictionError reports an unknown contradiction-handling method.
func NewUnresolvableContradictionError(method string) error {
	err := crdb.Wrapf(ErrUnresolvableContradiction, "unknown method %q", method)
	return crdb.WithHint(err, "use one of: remove, recode, split")
}

// NewCombinatorialLimitError reports a condition set whose level product is too
// large to enumerate safely.
func NewCombinatorialLimitError(conditions, rows, maxConditions, maxRows int) error {
	err := crdb.Wrapf(ErrCombinatorialLimitExceeded,
		"%d conditions spanning %d configurations (limits: %d conditions, %d configurations)",
		conditions, rows, maxConditions, maxRows)
	return crdb.WithHint(err, "reduce the number of conditions or coarsen multi-value levels")
}

// Error checking helpers
func IsInvalidCalibrationSpec(err error) bool {
	return errors.Is(err, ErrInvalidCalibrationSpec)
}

func IsInsufficientData(err error) bool {
	return errors.Is(err, ErrInsufficientData)
}

func IsUnresolvableContradiction(err error) bool {
	return errors.Is(err, ErrUnresolvableContradiction)
}

func IsCombinatorialLimitExceeded(err error) bool {
	return errors.Is(err, ErrCombinatorialLimitExceeded)
}

// IsStructuralError reports whether err is a kind the caller must resolve by
// changing scope or thresholds.
func IsStructuralError(err error) bool {
	return IsInsufficientData(err) ||
		IsUnresolvableContradiction(err) ||
		IsCombinatorialLimitExceeded(err) ||
		IsInvalidCalibrationSpec(err)
}

// Hints returns user-facing hints attached anywhere in the error chain.
func Hints(err error) []string {
	return crdb.GetAllHints(err)
}
