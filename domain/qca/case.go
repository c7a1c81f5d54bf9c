package qca

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

type rawKind uint8

const (
	rawMissing rawKind = iota
	rawNumber
	rawCategory
)

// RawValue is an uncalibrated measurement: numeric, categorical or missing.
type RawValue struct {
	kind rawKind
	num  float64
	str  string
}

// Number wraps a numeric measurement. NaN is treated as missing.
func Number(f float64) RawValue {
	if math.IsNaN(f) {
		return RawValue{}
	}
	return RawValue{kind: rawNumber, num: f}
}

// Category wraps a categorical measurement.
func Category(s string) RawValue {
	return RawValue{kind: rawCategory, str: s}
}

// Missing is an absent measurement.
func Missing() RawValue {
	return RawValue{}
}

// ParseRaw interprets a cell from a tabular source: empty cells are missing,
// numeric cells are numbers, everything else is a category.
func ParseRaw(s string) RawValue {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "na") || strings.EqualFold(s, "null") {
		return Missing()
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return Number(f)
	}
	return Category(s)
}

func (v RawValue) IsMissing() bool  { return v.kind == rawMissing }
func (v RawValue) IsNumeric() bool  { return v.kind == rawNumber }
func (v RawValue) IsCategory() bool { return v.kind == rawCategory }

// Float returns the numeric value, if any.
func (v RawValue) Float() (float64, bool) {
	return v.num, v.kind == rawNumber
}

// String renders the value the way it appeared in the source.
func (v RawValue) String() string {
	switch v.kind {
	case rawNumber:
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	case rawCategory:
		return v.str
	}
	return ""
}

func (v RawValue) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case rawNumber:
		return json.Marshal(v.num)
	case rawCategory:
		return json.Marshal(v.str)
	}
	return []byte("null"), nil
}

func (v *RawValue) UnmarshalJSON(data []byte) error {
	var x interface{}
	if err := json.Unmarshal(data, &x); err != nil {
		return err
	}
	*v = RawFromInterface(x)
	return nil
}

// RawFromInterface converts a decoded JSON/YAML scalar into a RawValue.
func RawFromInterface(x interface{}) RawValue {
	switch t := x.(type) {
	case nil:
		return Missing()
	case float64:
		return Number(t)
	case float32:
		return Number(float64(t))
	case int:
		return Number(float64(t))
	case int64:
		return Number(float64(t))
	case bool:
		if t {
			return Number(1)
		}
		return Number(0)
	case string:
		return Category(t)
	}
	return Missing()
}

// Case is one empirical observation. Cases are never mutated after ingestion.
type Case struct {
	ID      string              `json:"case_id"`
	Values  map[string]RawValue `json:"condition_values"`
	Outcome RawValue            `json:"outcome_value"`
}

// Column collects the raw values of one condition across cases, in order.
func Column(cases []Case, name string) []RawValue {
	col := make([]RawValue, len(cases))
	for i, c := range cases {
		col[i] = c.Values[name]
	}
	return col
}

// OutcomeColumn collects the raw outcome values across cases, in order.
func OutcomeColumn(cases []Case) []RawValue {
	col := make([]RawValue, len(cases))
	for i, c := range cases {
		col[i] = c.Outcome
	}
	return col
}

// CalibratedCase carries a case's memberships after calibration. Levels holds
// the discrete level for crisp and multi-value conditions; fuzzy conditions
// only appear in Memberships.
type CalibratedCase struct {
	ID          string             `json:"case_id"`
	Memberships map[string]float64 `json:"memberships"`
	Levels      map[string]int     `json:"levels,omitempty"`
	Outcome     float64            `json:"outcome"`
}
