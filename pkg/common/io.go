package common

import (
	"fmt"
	"io"
	"os"

	"github.com/chzyer/readline"
	log "github.com/echocat/slf4g"
)

type Settable interface {
	IsZero() bool
	Set(string) error
}

// Prompt describes an interactive question on the terminal.
type Prompt struct {
	Name       string
	Choices    []string
	CanBeEmpty bool

	Stdin  io.ReadCloser
	Stdout io.Writer
}

// RequestIfRequired asks on the terminal for a value until of accepts one,
// but only if of is still empty.
func (this Prompt) RequestIfRequired(of Settable) error {
	if !of.IsZero() {
		return nil
	}

	stdin, stdout := this.Stdin, this.Stdout
	if stdin == nil {
		stdin = os.Stdin
	}
	if stdout == nil {
		stdout = os.Stderr
	}

	l, err := readline.NewEx(&readline.Config{
		Stdin:  stdin,
		Stdout: stdout,
	})
	if err != nil {
		return fmt.Errorf("could not read from terminal for prompt %q: %w", this.Name, err)
	}
	defer func() {
		_ = l.Close()
	}()

	for i, choice := range this.Choices {
		_, _ = fmt.Fprintf(stdout, "  %2d) %s\n", i, choice)
	}

	l.SetPrompt(fmt.Sprintf("Select %s: ", this.Name))
	l.ResetHistory()
	for of.IsZero() {
		line, err := l.Readline()
		if err != nil {
			return fmt.Errorf("could not read from terminal for prompt %q: %w", this.Name, err)
		}
		if err := of.Set(line); err != nil {
			log.WithError(err).
				With("prompt", this.Name).
				Error("Illegal selection.")
		}
		if this.CanBeEmpty && line == "" {
			return nil
		}
	}
	return nil
}
