package app

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"time"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"

	"github.com/blaubaer/audio-session/pkg/backend"
	"github.com/blaubaer/audio-session/pkg/common"
	"github.com/blaubaer/audio-session/pkg/program"
)

func NewConfiguration() Configuration {
	return Configuration{
		Backend: backend.NewConfiguration(),
		Tone: ToneConfiguration{
			Frequency: program.DefaultToneFrequency,
		},
		Monitor: MonitorConfiguration{
			Gain:           1,
			ReportInterval: time.Second,
		},
	}
}

type Configuration struct {
	PreventAutoSave bool `yaml:"preventAutoSave"`

	Backend backend.Configuration `yaml:"backend"`

	Input  SideConfiguration `yaml:"input,omitempty"`
	Output SideConfiguration `yaml:"output,omitempty"`

	// BlockSize in frames. 0 means the default block size.
	BlockSize int `yaml:"blockSize,omitempty"`
	// SampleRate in Hz. 0 means the current sample rate of the device.
	SampleRate float64 `yaml:"sampleRate,omitempty"`
	// Duration of a program. 0 runs until interrupted.
	Duration time.Duration `yaml:"duration,omitempty"`
	// MetricsListen is the address the Prometheus metrics are served on.
	// Empty disables the endpoint.
	MetricsListen string `yaml:"metricsListen,omitempty"`

	Tone    ToneConfiguration    `yaml:"tone,omitempty"`
	Monitor MonitorConfiguration `yaml:"monitor,omitempty"`
	Record  RecordConfiguration  `yaml:"record,omitempty"`
}

// SideConfiguration selects the lets of one direction.
type SideConfiguration struct {
	// Device is matched against the device names; empty selects the first
	// device of the direction.
	Device common.Regexp `yaml:"device,omitempty"`
	// Lets are the let indexes; empty selects all lets of the device.
	Lets common.Ints `yaml:"lets,omitempty,flow"`
}

type ToneConfiguration struct {
	Frequency float64 `yaml:"frequency,omitempty"`
}

type MonitorConfiguration struct {
	Gain           float32       `yaml:"gain,omitempty"`
	ReportInterval time.Duration `yaml:"reportInterval,omitempty"`
}

type RecordConfiguration struct {
	File string `yaml:"file,omitempty"`
}

func (this *Configuration) SetupConfiguration(using common.FlagHolder) {
	using.Flag("preventAutoSave", "If provided configuration will NOT automatically be saved if absent.").
		Envar("AS_PREVENT_AUTO_SAVE").
		BoolVar(&this.PreventAutoSave)

	this.Backend.SetupConfiguration(using)
	this.Input.setupConfiguration(using, "input", "AS_INPUT")
	this.Output.setupConfiguration(using, "output", "AS_OUTPUT")

	using.Flag("blockSize", "Number of frames per block. If absent the default block size is used.").
		PlaceHolder("<frames>").
		Envar("AS_BLOCK_SIZE").
		IntVar(&this.BlockSize)
	using.Flag("sampleRate", "Sample rate in Hz. If absent the current sample rate of the device is used.").
		PlaceHolder("<hz>").
		Envar("AS_SAMPLE_RATE").
		Float64Var(&this.SampleRate)
	using.Flag("duration", "How long a program runs. If absent it runs until interrupted.").
		Envar("AS_DURATION").
		DurationVar(&this.Duration)
	using.Flag("metrics.listen", "Address to serve Prometheus metrics on, for example :9090. If absent no metrics are served.").
		PlaceHolder("<address>").
		Envar("AS_METRICS_LISTEN").
		StringVar(&this.MetricsListen)

	using.Flag("tone.frequency", "Frequency in Hz of the tone to play.").
		PlaceHolder("<hz>").
		Envar("AS_TONE_FREQUENCY").
		Float64Var(&this.Tone.Frequency)
	using.Flag("monitor.gain", "Factor applied to the monitored input.").
		Envar("AS_MONITOR_GAIN").
		Float32Var(&this.Monitor.Gain)
	using.Flag("monitor.reportInterval", "How often the input levels are logged while monitoring.").
		Envar("AS_MONITOR_REPORT_INTERVAL").
		DurationVar(&this.Monitor.ReportInterval)
	using.Flag("record.file", "WAV file to record into.").
		PlaceHolder("<file>").
		Envar("AS_RECORD_FILE").
		StringVar(&this.Record.File)
}

func (this *SideConfiguration) setupConfiguration(using common.FlagHolder, prefix, envPrefix string) {
	using.Flag(prefix+".device", "Regular expression matching the name of the "+prefix+" device.").
		PlaceHolder("<regex>").
		Envar(envPrefix + "_DEVICE").
		SetValue(&this.Device)
	using.Flag(prefix+".lets", "Comma separated indexes of the "+prefix+" lets to use. If absent all lets of the device are used.").
		PlaceHolder("<index,..>").
		Envar(envPrefix + "_LETS").
		SetValue(&this.Lets)
}

// mergeFrom overrides every value of this with the non-zero values of
// other.
func (this *Configuration) mergeFrom(other Configuration) error {
	if err := mergo.Merge(this, other, mergo.WithOverride, mergo.WithTransformers(regexpTransformer{})); err != nil {
		return fmt.Errorf("cannot merge configurations: %w", err)
	}
	return nil
}

type regexpTransformer struct{}

func (regexpTransformer) Transformer(t reflect.Type) func(dst, src reflect.Value) error {
	if t != reflect.TypeOf(common.Regexp{}) {
		return nil
	}
	return func(dst, src reflect.Value) error {
		if v := src.Interface().(common.Regexp); v.HasContent() && dst.CanSet() {
			dst.Set(src)
		}
		return nil
	}
}

func (this *Configuration) loadFrom(r io.Reader) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(this); err != nil && err != io.EOF {
		return err
	}
	return nil
}

func (this *Configuration) loadFromFile(fn string, ignoreNotFound bool) error {
	f, err := os.Open(fn)
	if os.IsNotExist(err) && ignoreNotFound {
		return nil
	}
	if err != nil {
		return fmt.Errorf("cannot open configuration file %q: %w", fn, err)
	}
	defer func() {
		_ = f.Close()
	}()

	if err := this.loadFrom(f); err != nil {
		return fmt.Errorf("cannot load configuration file %q: %w", fn, err)
	}

	return nil
}

func (this *Configuration) saveTo(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	return enc.Encode(this)
}

func (this *Configuration) saveToFile(fn string) error {
	_ = os.MkdirAll(filepath.Dir(fn), 0700)

	f, err := os.OpenFile(fn, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("cannot open configuration file %q: %w", fn, err)
	}
	defer func() {
		_ = f.Close()
	}()

	if err := this.saveTo(f); err != nil {
		return fmt.Errorf("cannot write file %q: %w", fn, err)
	}

	return nil
}

func defaultConfigurationFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "configuration.yaml"
	}
	return filepath.Join(dir, "audio-session", "configuration.yaml")
}
