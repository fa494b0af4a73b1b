package generator

type Pair struct {
	Weight float64
	Value  string
}

// DiscreteGenerator generates a distribution by choosing from a discrete set
// of values.
type DiscreteGenerator struct {
	values    []*Pair
	lastValue string
}

func NewDiscreteGenerator() *DiscreteGenerator {
	return &DiscreteGenerator{
		values:    make([]*Pair, 0),
		lastValue: "",
	}
}

func (self *DiscreteGenerator) NextString() string {
	sum := self.TotalWeight()
	value := NextFloat64()
	for _, p := range self.values {
		v := p.Weight / sum
		if value < v {
			self.lastValue = p.Value
			return p.Value
		}
		value -= v
	}
	// rounding may leave a tiny remainder past the last bucket
	last := self.values[len(self.values)-1].Value
	self.lastValue = last
	return last
}

func (self *DiscreteGenerator) LastString() string {
	if len(self.lastValue) == 0 {
		self.lastValue = self.NextString()
	}
	return self.lastValue
}

func (self *DiscreteGenerator) AddValue(weight float64, value string) {
	self.values = append(self.values, &Pair{
		Weight: weight,
		Value:  value,
	})
}

func (self *DiscreteGenerator) TotalWeight() float64 {
	var sum float64
	for _, p := range self.values {
		sum += p.Weight
	}
	return sum
}

func (self *DiscreteGenerator) Values() []*Pair {
	return self.values
}
