package client

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// LineReader is the input source of the REPL.
type LineReader interface {
	ReadLine(lineno int, prompt string) (string, error)
}

// ConsoleReader prints the prompt to out and reads one line from in.
type ConsoleReader struct {
	in  *bufio.Reader
	out io.Writer
}

func NewConsoleReader(in io.Reader, out io.Writer) *ConsoleReader {
	return &ConsoleReader{in: bufio.NewReader(in), out: out}
}

func (r *ConsoleReader) ReadLine(_ int, prompt string) (string, error) {
	fmt.Fprint(r.out, prompt)
	line, err := r.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
