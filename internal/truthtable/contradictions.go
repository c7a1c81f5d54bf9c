package truthtable

import (
	"sort"
	"strings"

	"goqca/domain/core"
	"goqca/domain/qca"
)

// ContradictionMethod selects how contradictory rows are resolved.
type ContradictionMethod string

const (
	ContradictionRemove ContradictionMethod = "remove"
	ContradictionRecode ContradictionMethod = "recode"
	ContradictionSplit  ContradictionMethod = "split"
)

// recodeMidpoint is the middle of the contradictory band (1-t, t).
const recodeMidpoint = 0.5

// HandleContradictions returns a new table with every contradictory row
// resolved by method. tt is not modified.
func (b *Builder) HandleContradictions(tt *qca.TruthTable, method ContradictionMethod) (*qca.TruthTable, error) {
	m := ContradictionMethod(strings.ToLower(strings.TrimSpace(string(method))))
	switch m {
	case ContradictionRemove, ContradictionRecode, ContradictionSplit:
	default:
		return nil, core.NewUnresolvableContradictionError(string(method))
	}

	byID := make(map[string]qca.CalibratedCase, len(tt.Cases))
	var totalOutcome float64
	for _, cc := range tt.Cases {
		byID[cc.ID] = cc
		totalOutcome += cc.Outcome
	}

	rows := make([]qca.Configuration, 0, len(tt.Rows))
	resolved := 0
	for _, row := range tt.Rows {
		if row.ResultType != qca.ResultContradictory {
			rows = append(rows, row)
			continue
		}
		resolved++
		switch m {
		case ContradictionRemove:
		case ContradictionRecode:
			row.ResultType = qca.ResultNegative
			if row.Consistency >= recodeMidpoint {
				row.ResultType = qca.ResultPositive
			}
			rows = append(rows, row)
		case ContradictionSplit:
			rows = append(rows, splitRow(row, tt.Conditions, byID, totalOutcome)...)
		}
	}

	b.logger.Debug("[TruthTable] %s resolved %d contradictory rows", m, resolved)
	return tt.WithRows(rows), nil
}

// splitRow partitions a contradictory row into a positive sub-row holding
// floor(f*c) cases plus the rounding leftover and a negative sub-row holding
// floor(f*(1-c)) cases. The highest-outcome cases go positive; ties break by
// case id. Empty sub-rows are dropped.
func splitRow(row qca.Configuration, infos []qca.ConditionInfo, byID map[string]qca.CalibratedCase, totalOutcome float64) []qca.Configuration {
	ids := append([]string(nil), row.Cases...)
	outcomeOf := func(id string) float64 {
		if cc, ok := byID[id]; ok {
			return cc.Outcome
		}
		return 0
	}
	sort.SliceStable(ids, func(i, j int) bool {
		oi, oj := outcomeOf(ids[i]), outcomeOf(ids[j])
		if oi != oj {
			return oi > oj
		}
		return ids[i] < ids[j]
	})

	f := len(ids)
	nPos := int(float64(f) * row.Consistency)
	nNeg := int(float64(f) * (1 - row.Consistency))
	nPos += f - nPos - nNeg

	var out []qca.Configuration
	for _, part := range []struct {
		ids []string
		rt  qca.ResultType
	}{
		{ids[:nPos], qca.ResultPositive},
		{ids[nPos:], qca.ResultNegative},
	} {
		if len(part.ids) == 0 {
			continue
		}
		sub := subRow(row, part.ids, infos, byID, totalOutcome)
		sub.ResultType = part.rt
		out = append(out, sub)
	}
	return out
}

func subRow(row qca.Configuration, ids []string, infos []qca.ConditionInfo, byID map[string]qca.CalibratedCase, totalOutcome float64) qca.Configuration {
	inclusion := make([]float64, 0, len(ids))
	outcome := make([]float64, 0, len(ids))
	for _, id := range ids {
		cc, ok := byID[id]
		if !ok {
			// records-only table: keep the parent's aggregate fit
			sub := row
			sub.Key = append([]int(nil), row.Key...)
			sub.Cases = append([]string(nil), ids...)
			sort.Strings(sub.Cases)
			sub.Frequency = len(ids)
			return sub
		}
		_, incl, err := Place(cc, infos)
		if err != nil {
			incl = 0
		}
		inclusion = append(inclusion, incl)
		outcome = append(outcome, cc.Outcome)
	}
	return summarize(row.Key, ids, inclusion, outcome, totalOutcome)
}
