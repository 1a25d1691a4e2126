package iocli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Stdio is the terminal-backed IO implementation used by the real CLI.
type Stdio struct {
	out io.Writer
	in  *bufio.Reader
}

func NewStdio() *Stdio {
	return &Stdio{
		out: os.Stdout,
		in:  bufio.NewReader(os.Stdin),
	}
}

func (s *Stdio) Println(a ...any) {
	fmt.Fprintln(s.out, a...)
}

func (s *Stdio) Printf(format string, a ...any) {
	fmt.Fprintf(s.out, format, a...)
}

// ReadInput prints the prompt and reads one line. Used for the pairing
// payload when it is pasted instead of passed as an argument.
func (s *Stdio) ReadInput(prompt string) (string, error) {
	fmt.Fprint(s.out, prompt)

	line, err := s.in.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	// TrimSpace также убирает \r при вводе из Windows-терминала
	return strings.TrimSpace(line), nil
}
