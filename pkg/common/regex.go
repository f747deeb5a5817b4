package common

import (
	"fmt"
	"regexp"
	"strings"
)

func NewRegexp(plain string) (result Regexp, err error) {
	err = result.Set(plain)
	return result, err
}

func MustNewRegexp(plain string) Regexp {
	result, err := NewRegexp(plain)
	if err != nil {
		panic(err)
	}
	return result
}

// Regexp matches device names. Expressions without own flags are matched
// case-insensitively, as device names differ in casing between backends.
type Regexp struct {
	plain string
	v     *regexp.Regexp
}

func (this *Regexp) Set(plain string) error {
	if plain == "" {
		*this = Regexp{}
		return nil
	}

	expr := plain
	if !strings.HasPrefix(expr, "(?") {
		expr = "(?i)" + expr
	}
	buf, err := regexp.Compile(expr)
	if err != nil {
		return fmt.Errorf("illegal-regexp: %s", plain)
	}

	*this = Regexp{plain, buf}
	return nil
}

func (this Regexp) String() string {
	return this.plain
}

func (this Regexp) MatchString(s string) bool {
	if v := this.v; v != nil {
		return v.MatchString(s)
	}
	return s == ""
}

func (this Regexp) MarshalText() (text []byte, err error) {
	return []byte(this.String()), nil
}

func (this *Regexp) UnmarshalText(text []byte) error {
	return this.Set(string(text))
}

func (this Regexp) IsZero() bool {
	return this.v == nil
}

func (this Regexp) HasContent() bool {
	return !this.IsZero()
}
