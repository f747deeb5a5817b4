package audio

import (
	"fmt"
	"strings"
)

type Direction uint8

const (
	DirectionInput  = Direction(0)
	DirectionOutput = Direction(1)
)

var (
	AllDirections = Directions{
		DirectionInput,
		DirectionOutput,
	}
)

func (this *Direction) Set(plain string) error {
	switch strings.TrimSpace(strings.ToLower(plain)) {
	case "input", "in", "capture":
		*this = DirectionInput
		return nil
	case "output", "out", "playback", "render":
		*this = DirectionOutput
		return nil
	default:
		return fmt.Errorf("illegal-direction: %s", plain)
	}
}

func (this Direction) String() string {
	v, err := this.MarshalText()
	if err != nil {
		return fmt.Sprintf("illegal-direction-%d", this)
	}
	return string(v)
}

func (this Direction) MarshalText() (text []byte, err error) {
	switch this {
	case DirectionInput:
		return []byte("input"), nil
	case DirectionOutput:
		return []byte("output"), nil
	default:
		return nil, fmt.Errorf("illegal direction: %d", this)
	}
}

func (this *Direction) UnmarshalText(text []byte) error {
	return this.Set(string(text))
}

func (this Direction) IsInput() bool {
	return this == DirectionInput
}

func (this Direction) IsOutput() bool {
	return this == DirectionOutput
}

type Directions []Direction

func (this Directions) Strings() []string {
	result := make([]string, len(this))
	for i, v := range this {
		result[i] = v.String()
	}
	return result
}

func (this Directions) String() string {
	return strings.Join(this.Strings(), ",")
}
