package truthtable

import "goqca/domain/qca"

// Enumerate calls fn for every configuration of the condition levels in
// lexicographic order. fn must not retain key.
func Enumerate(infos []qca.ConditionInfo, fn func(key []int)) {
	if len(infos) == 0 {
		return
	}
	key := make([]int, len(infos))
	for {
		fn(key)
		p := len(key) - 1
		for p >= 0 {
			key[p]++
			if key[p] < infos[p].Levels {
				break
			}
			key[p] = 0
			p--
		}
		if p < 0 {
			return
		}
	}
}

// Remainders lists configurations of the product space not present in tt,
// in lexicographic order.
func Remainders(tt *qca.TruthTable) [][]int {
	present := make(map[string]struct{}, len(tt.Rows))
	for _, row := range tt.Rows {
		if !row.IsRemainder() {
			present[row.KeyString()] = struct{}{}
		}
	}
	var out [][]int
	Enumerate(tt.Conditions, func(key []int) {
		if _, ok := present[qca.KeyString(key)]; !ok {
			out = append(out, append([]int(nil), key...))
		}
	})
	return out
}
