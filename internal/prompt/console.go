// Package prompt collects and validates the interactive project inputs.
package prompt

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Console reads answers line by line from a single buffered reader. All
// prompts in a run must share one Console so buffered input is not lost.
type Console struct {
	in  *bufio.Reader
	out io.Writer

	// pending carries the result of a read still in flight when an earlier
	// Ask was cancelled; the next Ask picks it up instead of reading again.
	pending chan lineResult
}

type lineResult struct {
	line string
	err  error
}

// NewConsole creates a Console over in and out.
func NewConsole(in io.Reader, out io.Writer) *Console {
	return &Console{in: bufio.NewReader(in), out: out}
}

// Ask prints prompt and returns the next line with only its line terminator
// removed. A final line without terminator is still returned; EOF before
// any input yields io.ErrUnexpectedEOF. Cancelling ctx returns at once,
// even while waiting for input.
func (c *Console) Ask(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if _, err := fmt.Fprint(c.out, prompt); err != nil {
		return "", fmt.Errorf("write prompt: %w", err)
	}

	if c.pending == nil {
		ch := make(chan lineResult, 1)
		c.pending = ch
		go func() {
			line, err := c.in.ReadString('\n')
			ch <- lineResult{line: line, err: err}
		}()
	}

	var r lineResult
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r = <-c.pending:
		c.pending = nil
	}

	line, err := r.line, r.err
	if err != nil {
		if errors.Is(err, io.EOF) {
			if line == "" {
				return "", io.ErrUnexpectedEOF
			}
			return line, nil
		}
		return "", fmt.Errorf("read input: %w", err)
	}

	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")
	return line, nil
}

// Println writes a message line to the console output.
func (c *Console) Println(msg string) {
	fmt.Fprintln(c.out, msg) //nolint:errcheck // console output is best-effort
}
