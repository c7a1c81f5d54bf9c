package ports

import (
	"goqca/domain/core"
	"goqca/domain/qca"
)

// SolutionCache memoizes minimization results by truth-table and option hash
type SolutionCache interface {
	Get(key core.Hash) ([]qca.Solution, bool)
	Set(key core.Hash, solutions []qca.Solution)
}
