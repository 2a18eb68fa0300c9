package cli

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
)

// ErrInputCancelled is returned when a prompt is abandoned through its context.
var ErrInputCancelled = errors.New("input canceled")

// PromptReader reads answers typed at an interactive prompt. A read blocked
// on the terminal returns as soon as its context ends, and the line it was
// waiting for goes to the next read instead of being dropped. Reads must not
// run concurrently.
type PromptReader struct {
	src     *bufio.Reader
	pending chan answer
}

type answer struct {
	err  error
	line string
}

// NewPromptReader wraps r, usually os.Stdin.
func NewPromptReader(r io.Reader) *PromptReader {
	if r == nil {
		panic("reader cannot be nil")
	}
	return &PromptReader{src: bufio.NewReader(r)}
}

// ReadLine returns the next line with surrounding whitespace trimmed. A last
// line without a newline is returned before io.EOF.
func (r *PromptReader) ReadLine(ctx context.Context) (string, error) {
	if ctx.Err() != nil {
		return "", ErrInputCancelled
	}

	if r.pending == nil {
		ch := make(chan answer, 1)
		go func() {
			line, err := r.src.ReadString('\n')
			if errors.Is(err, io.EOF) && line != "" {
				err = nil
			}
			ch <- answer{line: line, err: err}
		}()
		r.pending = ch
	}

	select {
	case <-ctx.Done():
		return "", ErrInputCancelled
	case res := <-r.pending:
		r.pending = nil
		return strings.TrimSpace(res.line), res.err
	}
}
