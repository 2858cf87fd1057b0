// internal/credentials/prompt.go
package credentials

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// TerminalPrompter asks on out and reads answers from in. When in is a
// terminal the token is read without echo.
type TerminalPrompter struct {
	in     *bufio.Reader
	out    io.Writer
	fd     int
	isTerm bool
}

// NewTerminalPrompter builds a prompter over stdin and stdout.
func NewTerminalPrompter() *TerminalPrompter {
	return NewPrompter(os.Stdin, os.Stdout)
}

// NewPrompter builds a prompter over arbitrary streams. Hidden input is used
// only when in is an *os.File attached to a terminal.
func NewPrompter(in io.Reader, out io.Writer) *TerminalPrompter {
	p := &TerminalPrompter{in: bufio.NewReader(in), out: out, fd: -1}
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		p.fd = int(f.Fd())
		p.isTerm = true
	}
	return p
}

func (p *TerminalPrompter) PromptHandle(ctx context.Context) (string, error) {
	return p.ask(ctx, "GitHub username: ", false)
}

func (p *TerminalPrompter) PromptToken(ctx context.Context) (string, error) {
	return p.ask(ctx, "GitHub personal access token: ", p.isTerm)
}

func (p *TerminalPrompter) Notify(msg string) {
	fmt.Fprintln(p.out, msg)
}

// ask re-prompts until a non-blank answer is given.
func (p *TerminalPrompter) ask(ctx context.Context, prompt string, hidden bool) (string, error) {
	for {
		fmt.Fprint(p.out, prompt)
		answer, err := p.readLine(ctx, hidden)
		if err != nil {
			return "", err
		}
		if answer = strings.TrimSpace(answer); answer != "" {
			return answer, nil
		}
	}
}

type lineResult struct {
	line string
	err  error
}

func (p *TerminalPrompter) readLine(ctx context.Context, hidden bool) (string, error) {
	done := make(chan lineResult, 1)
	go func() {
		if hidden {
			b, err := term.ReadPassword(p.fd)
			fmt.Fprintln(p.out)
			done <- lineResult{string(b), err}
			return
		}
		line, err := p.in.ReadString('\n')
		if err == io.EOF && line != "" {
			err = nil
		}
		done <- lineResult{line, err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-done:
		return res.line, res.err
	}
}
