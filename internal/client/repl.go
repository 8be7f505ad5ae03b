package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/loganszeto/udpkv/internal/protocol"
)

type Sender interface {
	Send(ctx context.Context, msg string) (string, error)
}

type REPL struct {
	sender Sender
	reader LineReader
	out    io.Writer
}

func NewREPL(sender Sender, reader LineReader, out io.Writer) *REPL {
	return &REPL{sender: sender, reader: reader, out: out}
}

// Run reads lines until quit, exit, EOF or ctx is done. Send failures are
// printed and the loop carries on.
func (r *REPL) Run(ctx context.Context) error {
	lineno := 1
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		line, err := r.reader.ReadLine(lineno, fmt.Sprintf("udp[%d]> ", lineno))
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(r.out)
			return nil
		}
		if err != nil {
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		switch line {
		case "quit", "exit":
			return nil
		case "help":
			r.help()
			lineno++
			continue
		}

		reply, err := r.sender.Send(ctx, line)
		lineno++
		if err != nil {
			fmt.Fprintf(r.out, "error: %v\n", err)
			continue
		}
		fmt.Fprintln(r.out, FormatReply(reply))
	}
}

func (r *REPL) help() {
	for _, c := range protocol.Commands() {
		switch c.Arity {
		case 0:
			fmt.Fprintf(r.out, "  %s\n", c.Name)
		case 1:
			fmt.Fprintf(r.out, "  %s <key>\n", c.Name)
		default:
			fmt.Fprintf(r.out, "  %s <key> <value>\n", c.Name)
		}
	}
	fmt.Fprintf(r.out, "  quit | exit\n")
}

// FormatReply renders a reply as "<code> <description> <body>". Replies that
// do not parse are returned unchanged.
func FormatReply(reply string) string {
	resp, err := protocol.ParseResponse([]byte(reply))
	if err != nil {
		return reply
	}
	return fmt.Sprintf("%d %s %s", resp.Status.Code, resp.Status.Description, resp.Body)
}
