package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"
)

const maxInputSize = 1024

var (
	// ErrInputTooLarge is returned for lines longer than maxInputSize.
	ErrInputTooLarge = errors.New("input too large")
	// ErrInvalidUTF8 is returned for lines that are not valid UTF-8.
	ErrInvalidUTF8 = errors.New("input is not valid UTF-8")
)

type inputResult struct {
	text string
	err  error
}

// lineReader reads lines on a background goroutine so a prompt can be abandoned
// when the context is cancelled.
type lineReader struct {
	reader    *bufio.Reader
	lines     chan inputResult
	startOnce sync.Once
}

func newLineReader(r io.Reader) *lineReader {
	return &lineReader{reader: bufio.NewReader(r)}
}

func (l *lineReader) pump() {
	for {
		text, err := l.reader.ReadString('\n')
		if text != "" {
			l.lines <- inputResult{text: text}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				l.lines <- inputResult{err: err}
			}
			close(l.lines)
			return
		}
	}
}

// ReadLine blocks until a line is available, the input ends (io.EOF) or ctx is done.
func (l *lineReader) ReadLine(ctx context.Context) (string, error) {
	l.startOnce.Do(func() {
		l.lines = make(chan inputResult)
		go l.pump()
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res, ok := <-l.lines:
		if !ok {
			return "", io.EOF
		}
		if res.err != nil {
			return "", res.err
		}
		return sanitizeInput(strings.TrimSpace(res.text))
	}
}

// sanitizeInput rejects oversized or malformed lines and strips control characters
// so they never reach the terminal or the logs.
func sanitizeInput(input string) (string, error) {
	if len(input) > maxInputSize {
		return "", fmt.Errorf("%w: size=%d limit=%d", ErrInputTooLarge, len(input), maxInputSize)
	}
	if !utf8.ValidString(input) {
		return "", ErrInvalidUTF8
	}
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && r != '\t' {
			return -1
		}
		return r
	}, input), nil
}
