package cli

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
)

// ErrInputCancelled is returned when a prompt is abandoned because its
// context ended.
var ErrInputCancelled = errors.New("input canceled")

// lineReader reads answers one line at a time without blocking past
// context cancellation. A read that is abandoned keeps its goroutine until
// input arrives, and the line it eventually gets is handed to the next call.
type lineReader struct {
	src     *bufio.Reader
	pending chan lineResult
	mu      sync.Mutex
}

type lineResult struct {
	err  error
	line string
}

func newLineReader(in io.Reader) *lineReader {
	return &lineReader{src: bufio.NewReader(in)}
}

// ReadLine returns the next line with surrounding whitespace removed. A last
// line missing its newline is still an answer; io.EOF means nothing was left.
func (r *lineReader) ReadLine(ctx context.Context) (string, error) {
	if ctx.Err() != nil {
		return "", ErrInputCancelled
	}

	r.mu.Lock()
	ch := r.pending
	if ch == nil {
		ch = make(chan lineResult, 1)
		go func() {
			line, err := r.src.ReadString('\n')
			ch <- lineResult{line: line, err: err}
		}()
	}
	r.pending = nil
	r.mu.Unlock()

	select {
	case <-ctx.Done():
		r.mu.Lock()
		r.pending = ch
		r.mu.Unlock()
		return "", ErrInputCancelled
	case res := <-ch:
		if res.err != nil && !(errors.Is(res.err, io.EOF) && res.line != "") {
			return "", res.err
		}
		return strings.TrimSpace(res.line), nil
	}
}
