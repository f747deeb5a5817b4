package app

import (
	"errors"
	"fmt"
	"io"

	log "github.com/echocat/slf4g"
	"gopkg.in/yaml.v3"

	"github.com/blaubaer/audio-session/pkg/audio"
	"github.com/blaubaer/audio-session/pkg/usage"
)

type deviceReport struct {
	Id           audio.DeviceId `yaml:"id"`
	Name         string         `yaml:"name"`
	Manufacturer string         `yaml:"manufacturer,omitempty"`
	BufferSize   struct {
		Min     int `yaml:"min"`
		Max     int `yaml:"max"`
		Current int `yaml:"current"`
	} `yaml:"bufferSize"`
	SampleRate float64      `yaml:"sampleRate"`
	Inputs     []letReport  `yaml:"inputs,omitempty"`
	Outputs    []letReport  `yaml:"outputs,omitempty"`
	UsedBy     usage.Usages `yaml:"usedBy,omitempty"`
}

type letReport struct {
	Index       int               `yaml:"index"`
	Name        string            `yaml:"name,omitempty"`
	Channels    int               `yaml:"channels"`
	SampleRates audio.SampleRates `yaml:"sampleRates,flow"`
}

// ListDevices writes every device of the catalog as YAML to w.
func (this *App) ListDevices(w io.Writer) error {
	catalog, _, err := this.state()
	if err != nil {
		return err
	}
	devices, err := catalog.ListDevices()
	if err != nil {
		return err
	}

	usages, err := usage.Probe()
	if err != nil && !errors.Is(err, usage.ErrNotSupported) {
		log.WithError(err).
			Warn("Cannot probe usage of input devices.")
	}

	reports := make([]*deviceReport, 0, len(devices))
	byId := make(map[audio.DeviceId]*deviceReport, len(devices))
	for _, d := range devices {
		r := &deviceReport{
			Id:           d.Id(),
			Name:         d.Name(),
			Manufacturer: d.Manufacturer(),
			SampleRate:   d.CurrentSampleRate(),
		}
		r.BufferSize.Min, r.BufferSize.Max, r.BufferSize.Current = d.MinBufferSize(), d.MaxBufferSize(), d.CurrentBufferSize()
		if d.CanInput() {
			r.UsedBy = usages.Of(d.Name())
		}
		reports = append(reports, r)
		byId[d.Id()] = r
	}
	for d, l := range devices.AllLets() {
		lr := letReport{
			Index:       l.Key().Index,
			Name:        l.Name(),
			Channels:    l.Channels(),
			SampleRates: l.SampleRates(),
		}
		r := byId[d.Id()]
		if l.Direction() == audio.DirectionInput {
			r.Inputs = append(r.Inputs, lr)
		} else {
			r.Outputs = append(r.Outputs, lr)
		}
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(reports); err != nil {
		return fmt.Errorf("cannot write devices: %w", err)
	}
	return enc.Close()
}
