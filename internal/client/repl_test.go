package client

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

type scriptedReader struct {
	lines   []string
	prompts []string
}

func (r *scriptedReader) ReadLine(_ int, prompt string) (string, error) {
	r.prompts = append(r.prompts, prompt)
	if len(r.lines) == 0 {
		return "", io.EOF
	}
	line := r.lines[0]
	r.lines = r.lines[1:]
	return line, nil
}

type fakeSender struct {
	sent    []string
	replies map[string]string
}

func (s *fakeSender) Send(_ context.Context, msg string) (string, error) {
	s.sent = append(s.sent, msg)
	reply, ok := s.replies[msg]
	if !ok {
		return "", errors.New("unreachable")
	}
	return reply, nil
}

func TestREPLSession(t *testing.T) {
	reader := &scriptedReader{lines: []string{"ping", "", "   ", "get k", "garbled", "dbsize", "quit", "ping"}}
	sender := &fakeSender{replies: map[string]string{
		"ping":   "200:ok:PONG",
		"get k":  "404:not-found:k",
		"dbsize": "nonsense",
	}}
	var out bytes.Buffer

	if err := NewREPL(sender, reader, &out).Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	want := "200 ok PONG\n404 not-found k\nerror: unreachable\nnonsense\n"
	if out.String() != want {
		t.Fatalf("expected %q, got %q", want, out.String())
	}
	if len(sender.sent) != 4 {
		t.Fatalf("expected 4 sends, got %v", sender.sent)
	}
	wantPrompts := []string{"udp[1]> ", "udp[2]> ", "udp[2]> ", "udp[2]> ", "udp[3]> ", "udp[4]> ", "udp[5]> "}
	if strings.Join(reader.prompts, "|") != strings.Join(wantPrompts, "|") {
		t.Fatalf("expected prompts %q, got %q", wantPrompts, reader.prompts)
	}
}

func TestREPLEndsOnEOF(t *testing.T) {
	var out bytes.Buffer
	sender := &fakeSender{replies: map[string]string{"ping": "200:ok:PONG"}}
	if err := NewREPL(sender, &scriptedReader{lines: []string{"ping"}}, &out).Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if out.String() != "200 ok PONG\n\n" {
		t.Fatalf("unexpected output %q", out.String())
	}
}

func TestREPLHelp(t *testing.T) {
	var out bytes.Buffer
	sender := &fakeSender{}
	if err := NewREPL(sender, &scriptedReader{lines: []string{"help", "exit"}}, &out).Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(sender.sent) != 0 {
		t.Fatalf("help must not be sent, got %v", sender.sent)
	}
	for _, want := range []string{"ping", "set <key> <value>", "loaddb <key>", "quit | exit"} {
		if !strings.Contains(out.String(), want) {
			t.Fatalf("expected %q in help:\n%s", want, out.String())
		}
	}
}

func TestConsoleReader(t *testing.T) {
	var out bytes.Buffer
	r := NewConsoleReader(strings.NewReader("ping\r\nlast"), &out)

	line, err := r.ReadLine(1, "udp[1]> ")
	if err != nil || line != "ping" {
		t.Fatalf("expected ping, got %q %v", line, err)
	}
	line, err = r.ReadLine(2, "udp[2]> ")
	if err != nil || line != "last" {
		t.Fatalf("expected unterminated last line, got %q %v", line, err)
	}
	if _, err := r.ReadLine(3, "udp[3]> "); !errors.Is(err, io.EOF) {
		t.Fatalf("expected EOF, got %v", err)
	}
	if out.String() != "udp[1]> udp[2]> udp[3]> " {
		t.Fatalf("unexpected prompts %q", out.String())
	}
}
