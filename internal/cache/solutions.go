package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"

	"goqca/domain/core"
	"goqca/domain/qca"
)

// SolutionCache memoizes minimization results in memory with a TTL
type SolutionCache struct {
	cache *gocache.Cache
}

// NewSolutionCache creates a cache; a non-positive ttl keeps entries until
// the process exits.
func NewSolutionCache(ttl time.Duration) *SolutionCache {
	cleanup := 2 * ttl
	if ttl <= 0 {
		ttl = gocache.NoExpiration
		cleanup = 0
	}
	return &SolutionCache{
		cache: gocache.New(ttl, cleanup),
	}
}

// Get retrieves a copy of the cached solutions for key
func (c *SolutionCache) Get(key core.Hash) ([]qca.Solution, bool) {
	if val, found := c.cache.Get(string(key)); found {
		return append([]qca.Solution(nil), val.([]qca.Solution)...), true
	}
	return nil, false
}

// Set stores solutions under key with the default TTL
func (c *SolutionCache) Set(key core.Hash, solutions []qca.Solution) {
	c.cache.SetDefault(string(key), append([]qca.Solution(nil), solutions...))
}

// Len returns the number of live entries
func (c *SolutionCache) Len() int {
	return c.cache.ItemCount()
}

// Clear removes all values from the cache
func (c *SolutionCache) Clear() {
	c.cache.Flush()
}

// Key derives the memo key from the truth table and the minimization
// parameters. Equal tables with equal parameters always share a key.
func Key(tt *qca.TruthTable, params map[string]interface{}) core.Hash {
	return core.CombineHashes(tt.Hash(), core.ComputeParamsHash(params))
}
