package qca

// SolutionType distinguishes the three minimization strategies.
type SolutionType string

const (
	SolutionComplex      SolutionType = "complex"
	SolutionParsimonious SolutionType = "parsimonious"
	SolutionIntermediate SolutionType = "intermediate"
)

// TermFit is the empirical fit of one solution term.
type TermFit struct {
	Term           string  `json:"term"`
	RawCoverage    float64 `json:"raw_coverage"`
	UniqueCoverage float64 `json:"unique_coverage"`
	Consistency    float64 `json:"consistency"`
}

// Solution is a derived view over a truth table. It references cases by id
// and owns no case data.
type Solution struct {
	Type             SolutionType `json:"type"`
	Expression       string       `json:"expression"`
	Terms            []Implicant  `json:"-"`
	PrimeImplicants  []string     `json:"prime_implicants"`
	TermFits         []TermFit    `json:"term_fits,omitempty"`
	Cases            []string     `json:"cases,omitempty"`
	Coverage         float64      `json:"coverage"`
	Consistency      float64      `json:"consistency"`
	Complexity       int          `json:"complexity"`
	Literals         int          `json:"literals"`
	Interpretability float64      `json:"interpretability"`
	Robustness       float64      `json:"robustness"`

	// DegenerateToParsimonious is set on an intermediate solution computed
	// without directional expectations.
	DegenerateToParsimonious bool `json:"degenerate_to_parsimonious,omitempty"`
}

// ConditionScore ranks a condition by how much explanatory weight it carries
// across a set of solutions.
type ConditionScore struct {
	Condition string  `json:"condition"`
	Raw       float64 `json:"raw"`
	Score     float64 `json:"score"`
}
