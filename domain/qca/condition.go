package qca

import "strings"

// DomainKind is the set-theoretic domain a condition is measured in.
type DomainKind string

const (
	DomainCrisp      DomainKind = "crisp"
	DomainMultiValue DomainKind = "multi_value"
	DomainFuzzy      DomainKind = "fuzzy"
)

// Valid reports whether k is a known domain kind.
func (k DomainKind) Valid() bool {
	switch k {
	case DomainCrisp, DomainMultiValue, DomainFuzzy:
		return true
	}
	return false
}

// Method selects the calibration transform.
type Method string

const (
	MethodDirect        Method = "direct"
	MethodThreshold     Method = "threshold"
	MethodInterpolation Method = "interpolation"
	MethodGaussian      Method = "gaussian"
	MethodSigmoid       Method = "sigmoid"
	MethodIndirect      Method = "indirect"
	MethodAuto          Method = "auto"
)

// ParseMethod normalizes a method name. The empty string means auto.
func ParseMethod(s string) (Method, bool) {
	m := Method(strings.ToLower(strings.TrimSpace(s)))
	switch m {
	case "":
		return MethodAuto, true
	case MethodDirect, MethodThreshold, MethodInterpolation, MethodGaussian,
		MethodSigmoid, MethodIndirect, MethodAuto:
		return m, true
	}
	return m, false
}

// AnchorPoint maps one raw value to a membership score.
type AnchorPoint struct {
	Raw        float64 `json:"raw" yaml:"raw" mapstructure:"raw"`
	Membership float64 `json:"membership" yaml:"membership" mapstructure:"membership"`
}

// CalibrationSpec describes how a raw column becomes set membership.
//
// Anchors holds (full-membership, crossover, full-non-membership) for direct,
// two anchors for threshold, or k-1 ascending cut points for a multi-value
// threshold. Points drives interpolation, Center/Spread drive gaussian and
// sigmoid, Categories drives indirect.
type CalibrationSpec struct {
	Method     Method             `json:"method" yaml:"method" mapstructure:"method"`
	Anchors    []float64          `json:"anchors,omitempty" yaml:"anchors,omitempty" mapstructure:"anchors"`
	Points     []AnchorPoint      `json:"points,omitempty" yaml:"points,omitempty" mapstructure:"points"`
	Center     float64            `json:"center,omitempty" yaml:"center,omitempty" mapstructure:"center"`
	Spread     float64            `json:"spread,omitempty" yaml:"spread,omitempty" mapstructure:"spread"`
	Categories map[string]float64 `json:"categories,omitempty" yaml:"categories,omitempty" mapstructure:"categories"`
}

// Condition is one explanatory set in the analysis.
type Condition struct {
	Name        string          `json:"name" yaml:"name"`
	Domain      DomainKind      `json:"domain" yaml:"domain"`
	Levels      int             `json:"levels,omitempty" yaml:"levels,omitempty"`
	Calibration CalibrationSpec `json:"calibration" yaml:"calibration"`
}

// LevelCount is the number of discrete levels the condition contributes to a
// configuration key. Crisp and fuzzy conditions always have two.
func (c Condition) LevelCount() int {
	if c.Domain == DomainMultiValue && c.Levels >= 2 {
		return c.Levels
	}
	return 2
}

// Kind is the condition's domain; unset means fuzzy.
func (c Condition) Kind() DomainKind {
	if c.Domain == "" {
		return DomainFuzzy
	}
	return c.Domain
}

// IsFuzzy reports whether memberships are graded rather than discrete.
func (c Condition) IsFuzzy() bool {
	return c.Kind() == DomainFuzzy
}

// Info returns the shape of the condition as recorded on a truth table.
func (c Condition) Info() ConditionInfo {
	return ConditionInfo{Name: c.Name, Domain: c.Kind(), Levels: c.LevelCount()}
}

// ConditionInfo is the calibration-free description of a truth table column.
type ConditionInfo struct {
	Name   string     `json:"name"`
	Domain DomainKind `json:"domain"`
	Levels int        `json:"levels"`
}

// Infos converts conditions to their truth table column descriptions.
func Infos(conditions []Condition) []ConditionInfo {
	infos := make([]ConditionInfo, len(conditions))
	for i, c := range conditions {
		infos[i] = c.Info()
	}
	return infos
}

// LevelProduct returns the size of the full configuration space, saturating
// at limit+1 so callers can compare against a bound without overflow.
func LevelProduct(infos []ConditionInfo, limit int) int {
	product := 1
	for _, info := range infos {
		product *= info.Levels
		if limit > 0 && product > limit {
			return limit + 1
		}
	}
	return product
}
