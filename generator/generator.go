package generator

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// Generator is an expression that generates a sequence of string values,
// following some distribution(Uniform, Exponential, NURand, etc.).
type Generator interface {
	// NextString generates the next string in the distribution.
	NextString() string
	// LastString returns the previous string generated by the distribution,
	// e.g. the string returned by the last NextString() call.
	// Calling LastString() should not advance the distribution or have any
	// side effects. If NextString() has not yet been called, LastString()
	// should return something reasonable.
	LastString() string
}

func NewErrorf(format string, args ...interface{}) error {
	return errors.New(fmt.Sprintf(format, args...))
}

// lockedSource makes a rand.Source safe to share among goroutines.
type lockedSource struct {
	lock sync.Mutex
	src  rand.Source
}

func (self *lockedSource) Int63() int64 {
	self.lock.Lock()
	defer self.lock.Unlock()
	return self.src.Int63()
}

func (self *lockedSource) Seed(seed int64) {
	self.lock.Lock()
	defer self.lock.Unlock()
	self.src.Seed(seed)
}

var (
	random *rand.Rand
)

func init() {
	random = rand.New(&lockedSource{src: rand.NewSource(time.Now().UnixNano())})
}

// NewRandom returns a goroutine-local random source. Terminals own one each
// so procedures never contend on the shared source.
func NewRandom(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

func NextInt64(n int64) int64 {
	return random.Int63n(n)
}

// NextFloat64 returns a value in [0.0, 1.0).
func NextFloat64() float64 {
	return random.Float64()
}
