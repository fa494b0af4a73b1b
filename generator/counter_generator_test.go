package generator

import (
	"fmt"
	"github.com/hhkbp2/testify/require"
	"sync"
	"testing"
)

func TestCounterGenerator(t *testing.T) {
	value := int64(100)
	var g IntegerGenerator
	g = NewCounterGenerator(value)
	require.Equal(t, value-1, g.LastInt())
	for i := int64(0); i < 5; i++ {
		require.Equal(t, value+i, g.NextInt())
		require.Equal(t, value+i, g.LastInt())
	}
	for i := int64(5); i < 10; i++ {
		require.Equal(t, fmt.Sprintf("%d", value+i), g.NextString())
		require.Equal(t, fmt.Sprintf("%d", value+i), g.LastString())
	}
	require.Panics(t, func() { g.Mean() })
}

func TestCounterGeneratorConcurrent(t *testing.T) {
	routines := 8
	each := 1000
	g := NewCounterGenerator(1)
	var wg sync.WaitGroup
	for i := 0; i < routines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < each; j++ {
				g.NextInt()
			}
		}()
	}
	wg.Wait()
	require.Equal(t, int64(routines*each), g.Current())
}
