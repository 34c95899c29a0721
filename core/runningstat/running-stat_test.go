package runningstat_test

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/panicnic/panicrx/core/runningstat"
	"github.com/panicnic/panicrx/core/testenv"
)

func TestRunningStat(t *testing.T) {
	assert, require := testenv.MakeAR(t)

	var a, b runningstat.RunningStat
	empty := a.Read()
	assert.EqualValues(0, empty.Count)
	assert.True(math.IsNaN(empty.Min))
	assert.True(math.IsNaN(empty.Mean))
	assert.True(math.IsNaN(empty.Stdev))

	// https://en.wikipedia.org/w/index.php?title=Standard_deviation&oldid=821088286
	// "Sample standard deviation of metabolic rate of Northern Fulmars" section "female"
	input := []float64{1091.0, 1490.5, 1956.1, 727.7, 1361.3, 1086.5}
	var all runningstat.RunningStat
	for _, x := range input[:3] {
		a.Push(x)
		all.Push(x)
	}
	for _, x := range input[3:] {
		b.Push(x)
		all.Push(x)
	}

	for _, s := range []runningstat.Snapshot{all.Read(), runningstat.Combine(a, b).Read()} {
		assert.EqualValues(6, s.Count)
		assert.InDelta(727.7, s.Min, 0.1)
		assert.InDelta(1956.1, s.Max, 0.1)
		assert.InDelta(1285.5, s.Mean, 0.1)
		assert.InDelta(420.96, s.Stdev, 0.1)
	}

	scaled := all.Read().Scale(-0.001)
	assert.InDelta(-1.2855, scaled.Mean, 0.0001)
	assert.InDelta(0.42096, scaled.Stdev, 0.0001)

	one := runningstat.RunningStat{}
	one.Push(5)
	j, e := json.Marshal(one.Read())
	require.NoError(e)
	assert.JSONEq(`{"count":1,"min":5,"max":5,"mean":5}`, string(j))

	all.Clear()
	assert.EqualValues(0, all.Read().Count)
}
