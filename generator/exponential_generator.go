package generator

import (
	"math"
)

// ExponentialGenerator produces a sequence of longs according to
// an exponential distribution. Smaller intervals are more frequent than
// larger ones, and there is no bound on the length of an interval.
// gamma: mean rate events occur. 1/gamma: half life - average interval length
type ExponentialGenerator struct {
	*IntegerGeneratorBase
	gamma float64
}

func NewExponentialGeneratorByMean(mean float64) *ExponentialGenerator {
	return &ExponentialGenerator{
		IntegerGeneratorBase: NewIntegerGeneratorBase(0),
		gamma:                1.0 / mean,
	}
}

func (self *ExponentialGenerator) NextInt() int64 {
	return self.NextLong()
}

func (self *ExponentialGenerator) NextLong() int64 {
	// 1-u lies in (0, 1] so the logarithm stays finite.
	next := int64(-math.Log(1.0-NextFloat64()) / self.gamma)
	self.SetLastInt(next)
	return next
}

func (self *ExponentialGenerator) NextString() string {
	return self.IntegerGeneratorBase.NextString(self)
}

func (self *ExponentialGenerator) Mean() float64 {
	return 1.0 / self.gamma
}
