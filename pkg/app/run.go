package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	log "github.com/echocat/slf4g"

	"github.com/blaubaer/audio-session/pkg/audio"
	"github.com/blaubaer/audio-session/pkg/common"
	"github.com/blaubaer/audio-session/pkg/session"
	"github.com/blaubaer/audio-session/pkg/usage"
)

// Program is something the App runs inside its session.
type Program struct {
	Name   string
	Input  bool
	Output bool
	// NewListener is called after the session was initialized.
	NewListener func(*session.Session) (session.Listener, error)
}

// Run binds the lets the program requires, plays until ctx is done or the
// configured duration elapsed and uninitializes the session afterward.
func (this *App) Run(ctx context.Context, program Program) (rErr error) {
	catalog, s, err := this.state()
	if err != nil {
		return err
	}
	conf := this.Configuration()

	devices, err := catalog.ListDevices()
	if err != nil {
		return err
	}

	var inputs, outputs audio.Lets
	if program.Input {
		if inputs, err = this.selectLets(devices, audio.DirectionInput, conf.Input); err != nil {
			return err
		}
		warnAboutUsagesOf(inputs.Device())
	}
	if program.Output {
		if outputs, err = this.selectLets(devices, audio.DirectionOutput, conf.Output); err != nil {
			return err
		}
	}

	if conf.BlockSize == 0 && conf.SampleRate == 0 {
		err = s.InitializeWithDefaults(inputs, outputs)
	} else {
		err = s.Initialize(inputs, outputs, blockSizeOr(conf.BlockSize), sampleRateOr(conf.SampleRate, inputs, outputs))
	}
	if err != nil {
		return err
	}

	listener, err := program.NewListener(s)
	if err != nil {
		return errors.Join(err, s.Uninitialize())
	}
	if closer, ok := listener.(io.Closer); ok {
		// runs after the session was uninitialized, so no block reaches the
		// listener anymore
		defer func() {
			if err := closer.Close(); err != nil {
				rErr = errors.Join(rErr, err)
			}
		}()
	}
	defer func() {
		if err := s.Uninitialize(); err != nil {
			rErr = errors.Join(rErr, err)
		}
	}()
	s.SetListener(listener)

	if err := s.Play(); err != nil {
		return err
	}

	l := log.With("program", program.Name).
		With("session", s.Id()).
		With("blockSize", s.BlockSize()).
		With("sampleRate", s.SampleRate())
	if v := s.InputLets(); v.HasContent() {
		l = l.With("inputs", v)
	}
	if v := s.OutputLets(); v.HasContent() {
		l = l.With("outputs", v)
	}
	l.Info("Playing...")

	this.waitFor(ctx, conf, listener)

	if err := s.Pause(); err != nil {
		return err
	}
	log.With("program", program.Name).
		Info("Stopped.")
	return nil
}

type peaker interface {
	Peaks() []float32
}

func (this *App) waitFor(ctx context.Context, conf Configuration, listener session.Listener) {
	if d := conf.Duration; d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	var report <-chan time.Time
	p, isPeaker := listener.(peaker)
	if isPeaker && conf.Monitor.ReportInterval > 0 {
		ticker := time.NewTicker(conf.Monitor.ReportInterval)
		defer ticker.Stop()
		report = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-report:
			log.With("peaks", formatPeaks(p.Peaks())).
				Info("Input levels.")
		}
	}
}

func formatPeaks(in []float32) string {
	result := make([]string, len(in))
	for i, v := range in {
		result[i] = strconv.FormatFloat(float64(v), 'f', 3, 32)
	}
	return strings.Join(result, " ")
}

func blockSizeOr(v int) int {
	if v > 0 {
		return v
	}
	return session.DefaultBlockSize
}

func sampleRateOr(v float64, inputs, outputs audio.Lets) float64 {
	if v > 0 {
		return v
	}
	if d := inputs.Device(); d != nil {
		return d.CurrentSampleRate()
	}
	if d := outputs.Device(); d != nil {
		return d.CurrentSampleRate()
	}
	return 0
}

// selectLets resolves the configured device and lets of a direction. In
// interactive mode everything not configured is requested on the terminal.
func (this *App) selectLets(devices audio.Devices, direction audio.Direction, conf SideConfiguration) (audio.Lets, error) {
	candidates := devices.Inputs()
	if direction == audio.DirectionOutput {
		candidates = devices.Outputs()
	}

	var device *audio.Device
	if conf.Device.IsZero() && this.Interactive && len(candidates) > 1 {
		selected := deviceChoice{candidates: candidates}
		if err := (common.Prompt{
			Name:    direction.String() + " device",
			Choices: devicesToStrings(candidates),
		}).RequestIfRequired(&selected); err != nil {
			return nil, err
		}
		device = selected.selected
	} else if v, ok := candidates.FirstMatching(conf.Device, direction); ok {
		device = v
	} else {
		return nil, fmt.Errorf("there is no %v device matching %q", direction, conf.Device)
	}

	available := device.Lets(direction)
	indexes := conf.Lets
	if indexes.IsZero() && this.Interactive && len(available) > 1 {
		if err := (common.Prompt{
			Name:       direction.String() + " lets (comma separated, empty for all)",
			Choices:    available.Strings(),
			CanBeEmpty: true,
		}).RequestIfRequired(&indexes); err != nil {
			return nil, err
		}
	}
	if indexes.IsZero() {
		return available, nil
	}

	var result audio.Lets
	for _, index := range indexes {
		let, ok := available.ByIndex(index)
		if !ok {
			return nil, fmt.Errorf("device %v has no %v let %d", device, direction, index)
		}
		result = result.With(let)
	}
	return result, nil
}

func devicesToStrings(in audio.Devices) []string {
	result := make([]string, len(in))
	for i, v := range in {
		result[i] = v.String()
	}
	return result
}

// deviceChoice accepts the position of a device in the presented list.
type deviceChoice struct {
	candidates audio.Devices
	selected   *audio.Device
}

func (this *deviceChoice) IsZero() bool {
	return this.selected == nil
}

func (this *deviceChoice) Set(plain string) error {
	i, err := strconv.Atoi(strings.TrimSpace(plain))
	if err != nil || i < 0 || i >= len(this.candidates) {
		return fmt.Errorf("illegal-device: %s", plain)
	}
	this.selected = this.candidates[i]
	return nil
}

func warnAboutUsagesOf(device *audio.Device) {
	if device == nil {
		return
	}
	usages, err := usage.Probe()
	if errors.Is(err, usage.ErrNotSupported) {
		return
	}
	if err != nil {
		log.WithError(err).
			Debug("Cannot probe usage of input devices.")
		return
	}
	if v := usages.Of(device.Name()); v.HasContent() {
		log.With("device", device).
			With("processes", v).
			Warn("Input device is also captured by other processes.")
	}
}
