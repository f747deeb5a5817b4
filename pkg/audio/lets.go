package audio

import (
	"slices"
	"strings"
)

// Lets is a set of Let, unique by LetKey, in insertion order.
type Lets []Let

func NewLets(in ...Let) Lets {
	var result Lets
	for _, v := range in {
		result = result.With(v)
	}
	return result
}

// With returns a copy of this set which also contains v.
func (this Lets) With(v Let) Lets {
	if this.Contains(v) {
		return this.Clone()
	}
	return append(this.Clone(), v)
}

func (this Lets) Contains(v Let) bool {
	key := v.Key()
	for _, candidate := range this {
		if candidate.Key() == key {
			return true
		}
	}
	return false
}

func (this Lets) IsZero() bool {
	return len(this) <= 0
}

func (this Lets) HasContent() bool {
	return !this.IsZero()
}

func (this Lets) Clone() Lets {
	if this == nil {
		return nil
	}
	return slices.Clone(this)
}

// Channels is the sum of the channel counts of all lets.
func (this Lets) Channels() (result int) {
	for _, v := range this {
		result += v.channels
	}
	return
}

// Device returns the device of the representative member, nil if empty.
func (this Lets) Device() *Device {
	if this.IsZero() {
		return nil
	}
	return this[0].device
}

func (this Lets) Keys() []LetKey {
	result := make([]LetKey, len(this))
	for i, v := range this {
		result[i] = v.Key()
	}
	return result
}

func (this Lets) ByIndex(index int) (Let, bool) {
	for _, v := range this {
		if v.index == index {
			return v, true
		}
	}
	return Let{}, false
}

func (this Lets) Descriptors() []LetDescriptor {
	result := make([]LetDescriptor, len(this))
	for i, v := range this {
		result[i] = v.Descriptor()
	}
	return result
}

func (this Lets) Strings() []string {
	result := make([]string, len(this))
	for i, v := range this {
		result[i] = v.String()
	}
	return result
}

func (this Lets) String() string {
	return "[" + strings.Join(this.Strings(), ", ") + "]"
}

func (this Lets) MarshalText() ([]byte, error) {
	return []byte(this.String()), nil
}

// Verify reports whether all lets of the set belong to the same device and
// share the same direction. An empty or nil set is valid.
func Verify(lets Lets) bool {
	if lets.IsZero() {
		return true
	}
	representative := lets[0]
	device, direction := representative.DeviceId(), representative.direction
	for _, v := range lets {
		if v.DeviceId() != device || v.direction != direction {
			return false
		}
	}
	return true
}
