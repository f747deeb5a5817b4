package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	log "github.com/echocat/slf4g"
	"github.com/echocat/slf4g/native"
	"github.com/echocat/slf4g/native/facade/value"
	"github.com/echocat/slf4g/native/formatter"

	"github.com/blaubaer/audio-session/pkg/app"
)

func main() {
	lv := value.NewProvider(native.DefaultProvider)
	lv.Consumer.Formatter.Codec = value.MappingFormatterCodec{
		"text": formatter.NewText(func(v *formatter.Text) {
			bv := true
			v.AllowMultiLineMessage = &bv
			v.MultiLineMessageAfterFields = &bv
		}),
		"json": formatter.NewJson(),
	}

	a := app.NewApp()

	cmd := kingpin.New("audio-session", "Opens audio sessions on the audio devices of this machine.")
	a.SetupConfiguration(cmd)

	cmd.Flag("log.level", "").
		SetValue(lv.Level)
	cmd.Flag("log.format", "").
		Default("text").
		SetValue(lv.Consumer.Formatter)
	cmd.Flag("log.color", "").
		Default("auto").
		SetValue(lv.Consumer.Formatter.ColorMode)

	cmd.Command("devices", "Lists all devices with their lets and capabilities.").
		Action(action(a, func(context.Context) error {
			return a.ListDevices(os.Stdout)
		}))
	cmd.Command("tone", "Plays a sine on the selected output lets.").
		Action(action(a, func(ctx context.Context) error {
			return a.Run(ctx, a.Tone())
		}))
	cmd.Command("monitor", "Plays the selected input lets on the selected output lets.").
		Action(action(a, func(ctx context.Context) error {
			return a.Run(ctx, a.Monitor())
		}))
	cmd.Command("record", "Records the selected input lets into a WAV file.").
		Action(action(a, func(ctx context.Context) error {
			return a.Run(ctx, a.Record())
		}))

	kingpin.MustParse(cmd.Parse(os.Args[1:]))
}

func action(a *app.App, fn func(context.Context) error) kingpin.Action {
	return func(*kingpin.ParseContext) error {
		if err := a.Initialize(); err != nil {
			return err
		}
		defer func() {
			if err := a.Dispose(); err != nil {
				log.WithError(err).
					Warn("Cannot dispose application.")
			}
		}()

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		return fn(ctx)
	}
}
