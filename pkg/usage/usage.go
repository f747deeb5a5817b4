package usage

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shirou/gopsutil/process"
)

var ErrNotSupported = errors.New("endpoint usage can only be probed on Windows")

// Usage is an active capture session of another process on an endpoint.
type Usage struct {
	Endpoint string `yaml:"endpoint"`
	Pid      uint32 `yaml:"pid"`
	Process  string `yaml:"process,omitempty"`
}

func (this Usage) String() string {
	if this.Process != "" {
		return fmt.Sprintf("%s (%d)", this.Process, this.Pid)
	}
	return fmt.Sprintf("pid %d", this.Pid)
}

type Usages []Usage

func (this Usages) IsZero() bool {
	return len(this) <= 0
}

func (this Usages) HasContent() bool {
	return !this.IsZero()
}

// Of returns the usages of the endpoint with the given name. Names are
// compared case-insensitively.
func (this Usages) Of(endpoint string) (result Usages) {
	for _, v := range this {
		if strings.EqualFold(v.Endpoint, endpoint) {
			result = append(result, v)
		}
	}
	return
}

func (this Usages) Strings() []string {
	result := make([]string, len(this))
	for i, v := range this {
		result[i] = v.String()
	}
	return result
}

func (this Usages) String() string {
	return strings.Join(this.Strings(), ", ")
}

// Probe lists every process which currently captures from an active input
// endpoint. It fails with ErrNotSupported on platforms without WASAPI.
func Probe() (Usages, error) {
	result, err := probe()
	if err != nil {
		return nil, err
	}
	for i := range result {
		result[i].Process = processName(result[i].Pid)
	}
	return result, nil
}

func processName(pid uint32) string {
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return ""
	}
	name, err := p.Name()
	if err != nil {
		return ""
	}
	return name
}
