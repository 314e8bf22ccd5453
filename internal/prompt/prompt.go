// Package prompt asks the operator line-oriented questions.
package prompt

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/jedib0t/go-pretty/v6/table"
)

// ErrAborted is returned when the operator interrupts or closes input.
var ErrAborted = errors.New("aborted by user")

// LineReader reads one line after showing a prompt. *readline.Instance
// implements it.
type LineReader interface {
	SetPrompt(prompt string)
	Readline() (string, error)
}

// Prompter asks questions on a terminal.
type Prompter struct {
	lr    LineReader
	out   io.Writer
	close func() error
}

// New returns a readline-backed prompter writing to out.
func New(out io.Writer) (*Prompter, error) {
	rl, err := readline.NewEx(&readline.Config{
		Stdout:          out,
		InterruptPrompt: "^C",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize prompt: %w", err)
	}
	return &Prompter{lr: rl, out: out, close: rl.Close}, nil
}

// NewWithReader returns a prompter over lr.
func NewWithReader(lr LineReader, out io.Writer) *Prompter {
	return &Prompter{lr: lr, out: out}
}

// Close releases the terminal.
func (p *Prompter) Close() error {
	if p.close == nil {
		return nil
	}
	return p.close()
}

func (p *Prompter) readLine(prompt string) (string, error) {
	p.lr.SetPrompt(prompt)
	line, err := p.lr.Readline()
	if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
		return "", ErrAborted
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// Ask returns the answer, or def when the answer is empty.
func (p *Prompter) Ask(question, def string) (string, error) {
	prompt := question + ": "
	if def != "" {
		prompt = fmt.Sprintf("%s [%s]: ", question, def)
	}
	answer, err := p.readLine(prompt)
	if err != nil {
		return "", err
	}
	if answer == "" {
		return def, nil
	}
	return answer, nil
}

// Confirm asks a yes/no question until it gets a valid answer.
func (p *Prompter) Confirm(question string, def bool) (bool, error) {
	suffix := " [y/N]: "
	if def {
		suffix = " [Y/n]: "
	}
	for {
		answer, err := p.readLine(question + suffix)
		if err != nil {
			return false, err
		}
		switch strings.ToLower(answer) {
		case "":
			return def, nil
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}
		fmt.Fprintln(p.out, "Please answer y or n.")
	}
}

// Choose lists options and returns the index of the chosen one. An empty
// answer picks the first option.
func (p *Prompter) Choose(title string, options []string) (int, error) {
	if len(options) == 0 {
		return -1, errors.New("nothing to choose from")
	}
	fmt.Fprintln(p.out, title)
	t := table.NewWriter()
	t.SetOutputMirror(p.out)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"#", "Option"})
	for i, o := range options {
		t.AppendRow(table.Row{i + 1, o})
	}
	t.Render()

	answer, err := p.readLine(fmt.Sprintf("Select [1-%d] (default 1): ", len(options)))
	if err != nil {
		return -1, err
	}
	if answer == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(answer)
	if err != nil || n < 1 || n > len(options) {
		return -1, fmt.Errorf("invalid selection %q", answer)
	}
	return n - 1, nil
}
