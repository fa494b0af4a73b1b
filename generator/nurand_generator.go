package generator

// NURandGenerator implements the non-uniform random function of
// TPC-C clause 2.1.6:
//   NURand(A, x, y) = (((random(0, A) | random(x, y)) + C) % (y - x + 1)) + x
// C is drawn once per generator and stays constant for the run.
type NURandGenerator struct {
	*IntegerGeneratorBase
	a  *UniformIntegerGenerator
	xy *UniformIntegerGenerator
	x  int64
	y  int64
	c  int64
}

func NewNURandGenerator(a, x, y int64) *NURandGenerator {
	return &NURandGenerator{
		IntegerGeneratorBase: NewIntegerGeneratorBase(x - 1),
		a:                    NewUniformIntegerGenerator(0, a),
		xy:                   NewUniformIntegerGenerator(x, y),
		x:                    x,
		y:                    y,
		c:                    NextInt64(a + 1),
	}
}

func (self *NURandGenerator) NextInt() int64 {
	r1 := self.a.NextInt()
	r2 := self.xy.NextInt()
	next := (((r1 | r2) + self.c) % (self.y - self.x + 1)) + self.x
	self.SetLastInt(next)
	return next
}

func (self *NURandGenerator) NextString() string {
	return self.IntegerGeneratorBase.NextString(self)
}

func (self *NURandGenerator) Mean() float64 {
	panic("unsupported operation")
}
