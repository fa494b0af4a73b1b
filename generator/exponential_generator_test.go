package generator

import (
	"github.com/hhkbp2/testify/require"
	"strconv"
	"testing"
)

func TestExponentGenerator(t *testing.T) {
	total := 100
	var g IntegerGenerator
	g = NewExponentialGeneratorByMean(8571)
	for i := 0; i < total; i++ {
		last := g.NextInt()
		require.True(t, last >= 0)
		require.Equal(t, g.LastInt(), last)
		str := g.NextString()
		v, err := strconv.ParseInt(str, 0, 64)
		require.Nil(t, err)
		require.True(t, v >= 0)
		require.Equal(t, g.LastString(), str)
	}
}

func TestExponentialGeneratorByMean(t *testing.T) {
	mean := float64(12000)
	g := NewExponentialGeneratorByMean(mean)
	require.Equal(t, mean, g.Mean())
	total := 20000
	var sum int64
	for i := 0; i < total; i++ {
		v := g.NextInt()
		require.True(t, v >= 0)
		sum += v
	}
	observed := float64(sum) / float64(total)
	// the sample mean of 20000 draws stays well within 10% of the mean
	require.True(t, observed > mean*0.9 && observed < mean*1.1)
}
