package narrate

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// TextRenderer writes a session as plain text.
type TextRenderer struct {
	w io.Writer
}

// NewTextRenderer creates a TextRenderer writing to w.
func NewTextRenderer(w io.Writer) *TextRenderer {
	return &TextRenderer{w: w}
}

// Flavortext writes each line followed by a blank line.
func (t *TextRenderer) Flavortext(lines []string) error {
	for _, line := range lines {
		if _, err := fmt.Fprintln(t.w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(t.w)
	return err
}

// Options writes one "[i] label" line per choice.
func (t *TextRenderer) Options(choices []Choice) error {
	for _, c := range choices {
		if _, err := fmt.Fprintf(t.w, "[%d] %s\n", c.Index, c.Label); err != nil {
			return err
		}
	}
	return nil
}

// Error writes an invalid-choice message.
func (t *TextRenderer) Error(message string) error {
	_, err := fmt.Fprintf(t.w, "! %s\n", message)
	return err
}

type lineResult struct {
	line string
	err  error
}

// LineReader returns a ChoiceReader that reads one line per choice from in.
// If prompt is not empty it is written to out before each read. A read in
// progress is abandoned when ctx is cancelled.
func LineReader(in io.Reader, out io.Writer, prompt string) ChoiceReader {
	br := bufio.NewReader(in)
	var pending chan lineResult
	return func(ctx context.Context, _ int) (string, error) {
		if out != nil && prompt != "" {
			fmt.Fprint(out, prompt)
		}
		if pending == nil {
			pending = make(chan lineResult, 1)
			go func(ch chan<- lineResult) {
				line, err := br.ReadString('\n')
				if err == io.EOF && line != "" {
					err = nil
				}
				ch <- lineResult{line: line, err: err}
			}(pending)
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case res := <-pending:
			pending = nil
			return strings.TrimRight(res.line, "\r\n"), res.err
		}
	}
}
