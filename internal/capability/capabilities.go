// Package capability holds the explicit engine capabilities every QCA
// component receives at construction: the numeric backend and the
// combinatorial limits. There is no process-wide state; two analyses with
// different capabilities can run side by side.
package capability

import (
	"fmt"
	"strings"

	"goqca/domain/core"
	"goqca/domain/qca"
)

// Defaults for the combinatorial pre-flight checks.
const (
	DefaultMaxConditions   = 12
	DefaultMaxRows         = 4096
	DefaultAutoCardinality = 6
)

// Backend provides the numeric primitives calibration depends on.
type Backend interface {
	Name() string
	// Gaussian returns the bell membership exp(-(x-c)^2 / 2s^2), peak 1 at c.
	Gaussian(x, center, spread float64) float64
	// Logistic returns 1 / (1 + exp(-(x-c)/s)).
	Logistic(x, center, spread float64) float64
	// Percentile returns the p-th percentile (0..100) of values.
	Percentile(values []float64, p float64) float64
	// StdDev returns the sample standard deviation, 0 for fewer than 2 values.
	StdDev(values []float64) float64
}

// Capabilities is passed by value into every component constructor.
type Capabilities struct {
	Backend         Backend
	MaxConditions   int
	MaxRows         int
	AutoCardinality int
}

// Default returns gonum-backed capabilities with the standard limits.
func Default() Capabilities {
	return Capabilities{
		Backend:         NewGonumBackend(),
		MaxConditions:   DefaultMaxConditions,
		MaxRows:         DefaultMaxRows,
		AutoCardinality: DefaultAutoCardinality,
	}
}

// New resolves a backend by name and applies limits; zero limits keep defaults.
func New(backend string, maxConditions, maxRows, autoCardinality int) (Capabilities, error) {
	b, err := BackendByName(backend)
	if err != nil {
		return Capabilities{}, err
	}
	caps := Default()
	caps.Backend = b
	if maxConditions > 0 {
		caps.MaxConditions = maxConditions
	}
	if maxRows > 0 {
		caps.MaxRows = maxRows
	}
	if autoCardinality > 0 {
		caps.AutoCardinality = autoCardinality
	}
	return caps, nil
}

// BackendByName selects a backend: "gonum" (default) or "native".
func BackendByName(name string) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "gonum":
		return NewGonumBackend(), nil
	case "native", "pure", "math":
		return NewNativeBackend(), nil
	}
	return nil, fmt.Errorf("unknown numeric backend %q", name)
}

// Normalize fills unset fields so a zero Capabilities value is usable.
func (c Capabilities) Normalize() Capabilities {
	if c.Backend == nil {
		c.Backend = NewGonumBackend()
	}
	if c.MaxConditions <= 0 {
		c.MaxConditions = DefaultMaxConditions
	}
	if c.MaxRows <= 0 {
		c.MaxRows = DefaultMaxRows
	}
	if c.AutoCardinality <= 0 {
		c.AutoCardinality = DefaultAutoCardinality
	}
	return c
}

// CheckLimits is the pre-flight guard run before remainder enumeration or
// implicant merging begins.
func (c Capabilities) CheckLimits(conditions []qca.ConditionInfo) error {
	c = c.Normalize()
	rows := qca.LevelProduct(conditions, c.MaxRows)
	if len(conditions) > c.MaxConditions || rows > c.MaxRows {
		return core.NewCombinatorialLimitError(len(conditions), rows, c.MaxConditions, c.MaxRows)
	}
	return nil
}
