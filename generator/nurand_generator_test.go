package generator

import (
	"github.com/hhkbp2/testify/require"
	"testing"
)

func TestNURandGenerator(t *testing.T) {
	var g IntegerGenerator
	g = NewNURandGenerator(1023, 1, 3000)
	require.Equal(t, int64(0), g.LastInt())
	for i := 0; i < 1000; i++ {
		v := g.NextInt()
		require.True(t, v >= 1 && v <= 3000)
		require.Equal(t, v, g.LastInt())
	}
	require.Panics(t, func() { g.Mean() })
}
