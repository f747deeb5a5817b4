package common

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alecthomas/kingpin/v2"
)

type FlagHolder interface {
	Flag(name, help string) *kingpin.FlagClause
}

// Ints is a comma separated, cumulative list of integers usable as flag value.
type Ints []int

func (this *Ints) Set(plain string) error {
	for _, plain := range strings.Split(plain, ",") {
		plain = strings.TrimSpace(plain)
		if plain != "" {
			v, err := strconv.Atoi(plain)
			if err != nil {
				return fmt.Errorf("illegal-int: %s", plain)
			}
			*this = append(*this, v)
		}
	}
	return nil
}

func (this Ints) Strings() []string {
	result := make([]string, len(this))
	for i, v := range this {
		result[i] = strconv.Itoa(v)
	}
	return result
}

func (this Ints) String() string {
	return strings.Join(this.Strings(), ",")
}

func (this Ints) IsCumulative() bool {
	return true
}

func (this Ints) IsZero() bool {
	return len(this) == 0
}

func (this Ints) Has(v int) bool {
	for _, candidate := range this {
		if v == candidate {
			return true
		}
	}
	return false
}
