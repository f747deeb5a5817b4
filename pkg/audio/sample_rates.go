package audio

import (
	"slices"
	"strconv"
	"strings"
)

// SampleRates is an immutable set of sample rates in Hz.
type SampleRates struct {
	values []float64
}

func NewSampleRates(in ...float64) SampleRates {
	values := make([]float64, 0, len(in))
	for _, v := range in {
		if v > 0 && !slices.Contains(values, v) {
			values = append(values, v)
		}
	}
	slices.Sort(values)
	return SampleRates{values}
}

func (this SampleRates) Contains(rate float64) bool {
	_, found := slices.BinarySearch(this.values, rate)
	return found
}

// Values returns the rates in ascending order. The result is a copy.
func (this SampleRates) Values() []float64 {
	return slices.Clone(this.values)
}

func (this SampleRates) Len() int {
	return len(this.values)
}

func (this SampleRates) IsZero() bool {
	return len(this.values) == 0
}

func (this SampleRates) HasContent() bool {
	return !this.IsZero()
}

// Intersect returns the rates contained in both sets.
func (this SampleRates) Intersect(other SampleRates) SampleRates {
	var common []float64
	for _, v := range this.values {
		if other.Contains(v) {
			common = append(common, v)
		}
	}
	return SampleRates{common}
}

func (this SampleRates) Strings() []string {
	result := make([]string, len(this.values))
	for i, v := range this.values {
		result[i] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	return result
}

func (this SampleRates) String() string {
	return "{" + strings.Join(this.Strings(), ", ") + "}"
}

func (this SampleRates) MarshalYAML() (any, error) {
	return this.values, nil
}
