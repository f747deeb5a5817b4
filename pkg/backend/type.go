package backend

import (
	"fmt"
	"strings"
)

type Type uint8

const (
	TypeMalgo     = Type(0)
	TypePortAudio = Type(1)
	TypeFake      = Type(2)

	TypeDefault = TypeMalgo
)

var (
	AllTypes = Types{
		TypeMalgo,
		TypePortAudio,
		TypeFake,
	}
)

func (this *Type) Set(plain string) error {
	switch strings.TrimSpace(strings.ToLower(plain)) {
	case "malgo", "miniaudio":
		*this = TypeMalgo
		return nil
	case "portaudio", "pa":
		*this = TypePortAudio
		return nil
	case "fake", "dry":
		*this = TypeFake
		return nil
	default:
		return fmt.Errorf("illegal-backend-type: %s", plain)
	}
}

func (this Type) String() string {
	v, err := this.MarshalText()
	if err != nil {
		return fmt.Sprintf("illegal-backend-type-%d", this)
	}
	return string(v)
}

func (this Type) MarshalText() (text []byte, err error) {
	switch this {
	case TypeMalgo:
		return []byte("malgo"), nil
	case TypePortAudio:
		return []byte("portaudio"), nil
	case TypeFake:
		return []byte("fake"), nil
	default:
		return nil, fmt.Errorf("illegal backend type: %d", this)
	}
}

func (this *Type) UnmarshalText(text []byte) error {
	return this.Set(string(text))
}

type Types []Type

func (this Types) Strings() []string {
	result := make([]string, len(this))
	for i, v := range this {
		result[i] = v.String()
	}
	return result
}

func (this Types) String() string {
	return strings.Join(this.Strings(), ",")
}
