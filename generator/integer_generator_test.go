package generator

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/hhkbp2/testify/require"
)

func TestIntegerGeneratorBase(t *testing.T) {
	base := NewIntegerGeneratorBase(99)
	require.Equal(t, int64(99), base.LastInt())
	require.Equal(t, "99", base.LastString())
	base.SetLastInt(100)
	require.Equal(t, int64(100), base.LastInt())
	require.Equal(t, fmt.Sprintf("%d", 100), base.LastString())
}

func TestIntegerGeneratorShared(t *testing.T) {
	g := NewUniformIntegerGenerator(1, 10)
	var wg sync.WaitGroup
	var outOfRange int64
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				g.NextInt()
				last := g.LastInt()
				if last < 1 || last > 10 {
					atomic.AddInt64(&outOfRange, 1)
				}
			}
		}()
	}
	wg.Wait()
	require.Equal(t, int64(0), outOfRange)
}
