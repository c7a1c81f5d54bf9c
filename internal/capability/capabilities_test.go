package capability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goqca/domain/core"
	"goqca/domain/qca"
)

func TestBackendsAgree(t *testing.T) {
	g := NewGonumBackend()
	n := NewNativeBackend()

	for _, x := range []float64{-3, -1, 0, 0.5, 2, 7} {
		assert.InDelta(t, n.Gaussian(x, 0.5, 1.5), g.Gaussian(x, 0.5, 1.5), 1e-9, "gaussian at %v", x)
		assert.InDelta(t, n.Logistic(x, 0.5, 1.5), g.Logistic(x, 0.5, 1.5), 1e-9, "logistic at %v", x)
	}

	data := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	assert.InDelta(t, n.StdDev(data), g.StdDev(data), 1e-9)
	assert.Zero(t, g.StdDev([]float64{3}))
	assert.Zero(t, n.StdDev(nil))
}

func TestGaussianPeaksAtCenter(t *testing.T) {
	for _, b := range []Backend{NewGonumBackend(), NewNativeBackend()} {
		assert.InDelta(t, 1.0, b.Gaussian(10, 10, 2), 1e-12, b.Name())
		assert.Less(t, b.Gaussian(14, 10, 2), b.Gaussian(12, 10, 2), b.Name())
		assert.InDelta(t, 0.5, b.Logistic(10, 10, 2), 1e-12, b.Name())
	}
}

func TestPercentileBounds(t *testing.T) {
	data := []float64{9, 1, 5, 3, 7}
	for _, b := range []Backend{NewGonumBackend(), NewNativeBackend()} {
		assert.Equal(t, 1.0, b.Percentile(data, 0), b.Name())
		assert.Equal(t, 9.0, b.Percentile(data, 100), b.Name())
		p50 := b.Percentile(data, 50)
		assert.GreaterOrEqual(t, p50, 3.0, b.Name())
		assert.LessOrEqual(t, p50, 7.0, b.Name())
		assert.Zero(t, b.Percentile(nil, 50), b.Name())
	}
	assert.Equal(t, 5.0, NewNativeBackend().Percentile(data, 50))
}

func TestBackendByName(t *testing.T) {
	b, err := BackendByName("")
	require.NoError(t, err)
	assert.Equal(t, "gonum", b.Name())

	b, err = BackendByName("Native")
	require.NoError(t, err)
	assert.Equal(t, "native", b.Name())

	_, err = BackendByName("cuda")
	assert.Error(t, err)
}

func TestCheckLimits(t *testing.T) {
	caps, err := New("native", 3, 16, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultAutoCardinality, caps.AutoCardinality)

	binary := func(n int) []qca.ConditionInfo {
		out := make([]qca.ConditionInfo, n)
		for i := range out {
			out[i] = qca.ConditionInfo{Name: "X", Levels: 2}
		}
		return out
	}

	assert.NoError(t, caps.CheckLimits(binary(3)))

	err = caps.CheckLimits(binary(4))
	assert.True(t, core.IsCombinatorialLimitExceeded(err))

	wide := []qca.ConditionInfo{{Name: "A", Levels: 5}, {Name: "B", Levels: 5}}
	err = caps.CheckLimits(wide)
	assert.True(t, core.IsCombinatorialLimitExceeded(err))

	var zero Capabilities
	assert.NoError(t, zero.CheckLimits(binary(12)))
	assert.Error(t, zero.CheckLimits(binary(13)))
}
