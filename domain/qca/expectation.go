package qca

import (
	"fmt"
	"strconv"
	"strings"
)

// Expectations maps a condition name to the level theory expects to
// contribute to the outcome (1 = present, 0 = absent, or a multi-value level).
type Expectations map[string]int

// ParseExpectations reads "present"/"absent" or an explicit level for each
// condition and checks it against the condition's level range.
func ParseExpectations(raw map[string]string, conditions []ConditionInfo) (Expectations, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	byName := make(map[string]ConditionInfo, len(conditions))
	for _, c := range conditions {
		byName[c.Name] = c
	}

	out := make(Expectations, len(raw))
	for name, dir := range raw {
		info, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("expectation for unknown condition %q", name)
		}
		level, err := parseDirection(dir)
		if err != nil {
			return nil, fmt.Errorf("expectation for %q: %w", name, err)
		}
		if level < 0 || level >= info.Levels {
			return nil, fmt.Errorf("expectation for %q: level %d outside [0,%d]", name, level, info.Levels-1)
		}
		out[name] = level
	}
	return out, nil
}

func parseDirection(s string) (int, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "present", "1", "+", "true":
		return 1, nil
	case "absent", "0", "-", "~", "false":
		return 0, nil
	}
	level, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("unrecognized direction %q", s)
	}
	return level, nil
}

// Positions resolves expectations to key positions; -1 means no expectation.
func (e Expectations) Positions(conditions []ConditionInfo) []int {
	pos := make([]int, len(conditions))
	for i, c := range conditions {
		pos[i] = DontCare
		if level, ok := e[c.Name]; ok {
			pos[i] = level
		}
	}
	return pos
}
