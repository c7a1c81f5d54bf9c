package qca

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var abc = []ConditionInfo{
	{Name: "A", Domain: DomainCrisp, Levels: 2},
	{Name: "B", Domain: DomainCrisp, Levels: 2},
	{Name: "C", Domain: DomainMultiValue, Levels: 3},
}

func TestParseRaw(t *testing.T) {
	tests := []struct {
		input    string
		missing  bool
		numeric  bool
		expected string
	}{
		{"", true, false, ""},
		{"  NA ", true, false, ""},
		{"3.5", false, true, "3.5"},
		{"-2", false, true, "-2"},
		{"urban", false, false, "urban"},
	}

	for _, tt := range tests {
		v := ParseRaw(tt.input)
		if v.IsMissing() != tt.missing {
			t.Errorf("ParseRaw(%q).IsMissing() = %v, want %v", tt.input, v.IsMissing(), tt.missing)
		}
		if v.IsNumeric() != tt.numeric {
			t.Errorf("ParseRaw(%q).IsNumeric() = %v, want %v", tt.input, v.IsNumeric(), tt.numeric)
		}
		if v.String() != tt.expected {
			t.Errorf("ParseRaw(%q).String() = %q, want %q", tt.input, v.String(), tt.expected)
		}
	}
}

func TestRawValueJSON(t *testing.T) {
	var c Case
	err := json.Unmarshal([]byte(`{"case_id":"c1","condition_values":{"A":0.7,"B":"high","C":null},"outcome_value":1}`), &c)
	require.NoError(t, err)

	assert.Equal(t, "c1", c.ID)
	f, ok := c.Values["A"].Float()
	assert.True(t, ok)
	assert.Equal(t, 0.7, f)
	assert.True(t, c.Values["B"].IsCategory())
	assert.True(t, c.Values["C"].IsMissing())

	out, err := json.Marshal(c)
	require.NoError(t, err)
	assert.JSONEq(t, `{"case_id":"c1","condition_values":{"A":0.7,"B":"high","C":null},"outcome_value":1}`, string(out))
}

func TestImplicantTerm(t *testing.T) {
	tests := []struct {
		key      []int
		expected string
	}{
		{[]int{1, 0, 2}, "A*~B*C{2}"},
		{[]int{DontCare, 1, DontCare}, "B"},
		{[]int{0, DontCare, 0}, "~A*C{0}"},
		{[]int{DontCare, DontCare, DontCare}, "1"},
	}

	for _, tt := range tests {
		got := Implicant{Key: tt.key}.Term(abc)
		if got != tt.expected {
			t.Errorf("Term(%v) = %q, want %q", tt.key, got, tt.expected)
		}
	}
}

func TestImplicantCoverage(t *testing.T) {
	imp := Implicant{Key: []int{1, DontCare, 2}}
	assert.True(t, imp.Covers([]int{1, 0, 2}))
	assert.True(t, imp.Covers([]int{1, 1, 2}))
	assert.False(t, imp.Covers([]int{0, 1, 2}))
	assert.Equal(t, 2, imp.Literals())

	assert.True(t, imp.Subsumes(Implicant{Key: []int{1, 0, 2}}))
	assert.False(t, imp.Subsumes(Implicant{Key: []int{1, 0, DontCare}}))
}

func TestFormatExpressionIsCanonical(t *testing.T) {
	terms := []Implicant{
		{Key: []int{DontCare, DontCare, 1}},
		{Key: []int{1, 1, DontCare}},
	}
	assert.Equal(t, "A*B + C{1}", FormatExpression(terms, abc))

	reversed := []Implicant{terms[1], terms[0]}
	assert.Equal(t, FormatExpression(terms, abc), FormatExpression(reversed, abc))
}

func TestComputeQuality(t *testing.T) {
	rows := []Configuration{
		{Key: []int{0}, Frequency: 4, ResultType: ResultPositive},
		{Key: []int{1}, Frequency: 2, ResultType: ResultContradictory},
		{Key: []int{2}, Frequency: 2, ResultType: ResultNegative},
		{Key: []int{3}, ResultType: ResultRemainder},
	}
	q := ComputeQuality(rows)

	assert.Equal(t, 8, q.TotalFrequency)
	assert.InDelta(t, 0.25, q.ContradictionRate, 1e-12)
	assert.InDelta(t, 0.75, q.Coverage, 1e-12)
	assert.InDelta(t, 0.25, q.RemainderRatio, 1e-12)
	assert.Equal(t, 3, q.ObservedRows)
	assert.Equal(t, 1, q.RemainderRows)

	empty := ComputeQuality(nil)
	assert.Zero(t, empty.Coverage)
	assert.Zero(t, empty.RemainderRatio)
}

func TestTruthTableFromRecordsRejectsBadRows(t *testing.T) {
	conds := abc[:2]

	_, err := TruthTableFromRecords(TruthTableExport{
		Conditions: conds,
		Rows:       []TruthTableRecord{{Configuration: []int{1}, ResultType: ResultPositive}},
	})
	assert.Error(t, err)

	_, err = TruthTableFromRecords(TruthTableExport{
		Conditions: conds,
		Rows:       []TruthTableRecord{{Configuration: []int{1, 2}, ResultType: ResultPositive}},
	})
	assert.Error(t, err)

	_, err = TruthTableFromRecords(TruthTableExport{
		Conditions: conds,
		Rows:       []TruthTableRecord{{Configuration: []int{1, 0}, ResultType: "maybe"}},
	})
	assert.Error(t, err)
}

func TestParseExpectations(t *testing.T) {
	exp, err := ParseExpectations(map[string]string{"A": "present", "B": "absent", "C": "2"}, abc)
	require.NoError(t, err)
	assert.Equal(t, Expectations{"A": 1, "B": 0, "C": 2}, exp)
	assert.Equal(t, []int{1, 0, 2}, exp.Positions(abc))

	_, err = ParseExpectations(map[string]string{"D": "present"}, abc)
	assert.Error(t, err)

	_, err = ParseExpectations(map[string]string{"A": "3"}, abc)
	assert.Error(t, err)

	none, err := ParseExpectations(nil, abc)
	require.NoError(t, err)
	assert.Nil(t, none)
	assert.Equal(t, []int{DontCare, DontCare, DontCare}, none.Positions(abc))
}

func TestLevelProductSaturates(t *testing.T) {
	infos := make([]ConditionInfo, 40)
	for i := range infos {
		infos[i] = ConditionInfo{Name: "X", Levels: 2}
	}
	assert.Equal(t, 4097, LevelProduct(infos, 4096))
	assert.Equal(t, 12, LevelProduct(abc, 0))
}

func TestConditionInfoDefaultsToFuzzy(t *testing.T) {
	info := Condition{Name: "A"}.Info()
	assert.Equal(t, DomainFuzzy, info.Domain)
	assert.Equal(t, 2, info.Levels)
	assert.True(t, Condition{Name: "A"}.IsFuzzy())
	assert.Equal(t, DomainCrisp, Condition{Name: "B", Domain: DomainCrisp}.Info().Domain)
}
