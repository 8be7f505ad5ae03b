package protocol

import (
	"errors"
	"strings"
)

var ErrEmpty = errors.New("empty request")

// Decode turns a datagram payload into a Request. Invalid UTF-8 is replaced,
// never rejected. Runs of whitespace inside the value collapse to one space.
func Decode(payload []byte) (Request, error) {
	msg := strings.TrimSpace(strings.ToValidUTF8(string(payload), "\uFFFD"))
	head, tail := Split2(msg)
	if head == "" {
		return Request{}, ErrEmpty
	}
	key, value := Split2(tail)
	params := []string{key}
	if value != "" {
		params = append(params, value)
	}
	return Request{Command: head, Params: params}, nil
}

// Split2 splits msg into its first whitespace-delimited word and the
// remaining words joined by single spaces.
func Split2(msg string) (head, tail string) {
	fields := strings.Fields(msg)
	if len(fields) == 0 {
		return "", ""
	}
	return fields[0], strings.Join(fields[1:], " ")
}
