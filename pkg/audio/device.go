package audio

import (
	"fmt"
	"iter"

	"github.com/blaubaer/audio-session/pkg/common"
)

type DeviceId int

// NoDevice is passed to the backend for a side of a session without lets.
const NoDevice = DeviceId(-1)

// Device is a hardware audio endpoint. Instances are immutable snapshots
// produced by Catalog.ListDevices.
type Device struct {
	id                DeviceId
	name              string
	manufacturer      string
	minBufferSize     int
	maxBufferSize     int
	currentBufferSize int
	currentSampleRate float64
	inputs            Lets
	outputs           Lets
}

func (this *Device) Id() DeviceId {
	return this.id
}

func (this *Device) Name() string {
	return this.name
}

func (this *Device) Manufacturer() string {
	return this.manufacturer
}

func (this *Device) MinBufferSize() int {
	return this.minBufferSize
}

func (this *Device) MaxBufferSize() int {
	return this.maxBufferSize
}

func (this *Device) CurrentBufferSize() int {
	return this.currentBufferSize
}

func (this *Device) CurrentSampleRate() float64 {
	return this.currentSampleRate
}

func (this *Device) AcceptsBufferSize(size int) bool {
	return size >= this.minBufferSize && size <= this.maxBufferSize
}

// Inputs returns a copy of the input lets of this device.
func (this *Device) Inputs() Lets {
	return this.inputs.Clone()
}

// Outputs returns a copy of the output lets of this device.
func (this *Device) Outputs() Lets {
	return this.outputs.Clone()
}

func (this *Device) Lets(direction Direction) Lets {
	if direction == DirectionInput {
		return this.Inputs()
	}
	return this.Outputs()
}

func (this *Device) CanInput() bool {
	return this.inputs.HasContent()
}

func (this *Device) CanOutput() bool {
	return this.outputs.HasContent()
}

func (this *Device) Equals(other *Device) bool {
	if this == nil || other == nil {
		return this == other
	}
	return this.id == other.id
}

func (this *Device) String() string {
	if this.manufacturer == "" {
		return fmt.Sprintf("[%d] %s", this.id, this.name)
	}
	return fmt.Sprintf("[%d] %s by %s", this.id, this.name, this.manufacturer)
}

func (this *Device) MarshalText() ([]byte, error) {
	return []byte(this.String()), nil
}

type Devices []*Device

func (this Devices) IsZero() bool {
	return len(this) <= 0
}

func (this Devices) HasContent() bool {
	return !this.IsZero()
}

// Inputs returns only devices that can capture audio.
func (this Devices) Inputs() (result Devices) {
	for _, v := range this {
		if v.CanInput() {
			result = append(result, v)
		}
	}
	return
}

// Outputs returns only devices that can play audio.
func (this Devices) Outputs() (result Devices) {
	for _, v := range this {
		if v.CanOutput() {
			result = append(result, v)
		}
	}
	return
}

func (this Devices) ById(id DeviceId) (*Device, bool) {
	for _, v := range this {
		if v.id == id {
			return v, true
		}
	}
	return nil, false
}

// FirstMatching returns the first device with the requested direction whose
// name matches the expression. An empty expression matches any device.
func (this Devices) FirstMatching(name common.Regexp, direction Direction) (*Device, bool) {
	for _, v := range this {
		if v.Lets(direction).IsZero() {
			continue
		}
		if name.IsZero() || name.MatchString(v.name) {
			return v, true
		}
	}
	return nil, false
}

// AllLets iterates over every let of every device.
func (this Devices) AllLets() iter.Seq2[*Device, Let] {
	return func(yield func(*Device, Let) bool) {
		for _, d := range this {
			for _, l := range d.inputs {
				if !yield(d, l) {
					return
				}
			}
			for _, l := range d.outputs {
				if !yield(d, l) {
					return
				}
			}
		}
	}
}
