package voice

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
)

// TextListener reads one command per line, e.g. from a terminal.
type TextListener struct {
	lines  chan string
	errs   chan error
	prompt io.Writer
}

func NewTextListener(r io.Reader, prompt io.Writer) *TextListener {
	l := &TextListener{
		lines:  make(chan string),
		errs:   make(chan error, 1),
		prompt: prompt,
	}

	go func() {
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			l.lines <- sc.Text()
		}
		err := sc.Err()
		if err == nil {
			err = io.EOF
		}
		l.errs <- err
	}()

	return l
}

func NewStdinListener() *TextListener {
	return NewTextListener(os.Stdin, os.Stdout)
}

func (l *TextListener) Listen(ctx context.Context) (string, error) {
	if l.prompt != nil {
		fmt.Fprint(l.prompt, "> ")
	}

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case line := <-l.lines:
		return line, nil
	case err := <-l.errs:
		l.errs <- err
		return "", err
	}
}
