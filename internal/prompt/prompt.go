// Package prompt implements interactive terminal questions: yes/no
// decisions, plain line input and no-echo secret input.
package prompt

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"golang.org/x/term"
)

// Terminal asks questions on an interactive terminal.
//
// Design decision: a single mutex serializes all exchanges. Crawl
// strategies fan out into many goroutines and several of them may hit a
// conflict at once; without serialization their questions and answers
// would interleave on the terminal.
type Terminal struct {
	mu  sync.Mutex
	in  *bufio.Reader
	out io.Writer

	// fd is the input file descriptor used for no-echo reads, or -1
	// when the input is not a terminal.
	fd int
}

// NewTerminal creates a Terminal reading from in and writing to out.
// Pass fd -1 when in is not backed by a terminal; Secret then falls
// back to an echoing read.
func NewTerminal(in io.Reader, out io.Writer, fd int) *Terminal {
	if fd >= 0 && !term.IsTerminal(fd) {
		fd = -1
	}
	return &Terminal{in: bufio.NewReader(in), out: out, fd: fd}
}

// YesNo asks question and returns the user's choice. An empty answer
// selects defaultAnswer; anything other than y/n/empty re-asks.
func (t *Terminal) YesNo(ctx context.Context, question string, defaultAnswer bool) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	suffix := " [y/N] "
	if defaultAnswer {
		suffix = " [Y/n] "
	}

	for {
		if err := ctx.Err(); err != nil {
			return false, err
		}

		answer, err := t.ask(question + suffix)
		if err != nil {
			return false, err
		}

		switch strings.ToLower(strings.TrimSpace(answer)) {
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		case "":
			return defaultAnswer, nil
		}
		fmt.Fprintln(t.out, "Please answer with 'y' or 'n'.")
	}
}

// Line asks question and returns one line of input, without the
// trailing newline.
func (t *Terminal) Line(ctx context.Context, question string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}

	answer, err := t.ask(question)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(answer, "\r\n"), nil
}

// Secret asks question and returns one line of input read without echo.
// When the input is not a terminal it degrades to a plain Line read.
func (t *Terminal) Secret(ctx context.Context, question string) (string, error) {
	if t.fd < 0 {
		return t.Line(ctx, question)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}

	if _, err := io.WriteString(t.out, question); err != nil {
		return "", fmt.Errorf("write prompt: %w", err)
	}
	secret, err := term.ReadPassword(t.fd)
	fmt.Fprintln(t.out)
	if err != nil {
		return "", fmt.Errorf("read secret: %w", err)
	}
	return string(secret), nil
}

// ask writes question and reads one raw line of input.
func (t *Terminal) ask(question string) (string, error) {
	if _, err := io.WriteString(t.out, question); err != nil {
		return "", fmt.Errorf("write prompt: %w", err)
	}

	answer, err := t.in.ReadString('\n')
	if err != nil && (err != io.EOF || answer == "") {
		return "", fmt.Errorf("read answer: %w", err)
	}
	return answer, nil
}
