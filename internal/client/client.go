// Package client sends single request datagrams to a udp-server and drives
// the interactive prompt.
package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"
)

const (
	DefaultTimeout  = 3 * time.Second
	replyBufferSize = 1024
)

var ErrTimeout = errors.New("request timed out")

type Client struct {
	addr    string
	timeout time.Duration
}

func New(addr string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{addr: addr, timeout: timeout}
}

func (c *Client) Addr() string { return c.addr }

// Send opens a fresh socket, writes msg as one datagram and waits for one
// reply. Invalid UTF-8 in the reply is replaced.
func (c *Client) Send(ctx context.Context, msg string) (string, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "udp", c.addr)
	if err != nil {
		return "", fmt.Errorf("dial %s: %w", c.addr, err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { _ = conn.SetDeadline(time.Now()) })
	defer stop()

	deadline := time.Now().Add(c.timeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
		deadline = dl
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return "", err
	}

	if _, err := conn.Write([]byte(msg)); err != nil {
		return "", c.wrap(ctx, "send", err)
	}
	buf := make([]byte, replyBufferSize)
	n, err := conn.Read(buf)
	if err != nil {
		return "", c.wrap(ctx, "receive", err)
	}
	return strings.ToValidUTF8(string(buf[:n]), "\uFFFD"), nil
}

func (c *Client) wrap(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return fmt.Errorf("%s %s: %w", op, c.addr, ErrTimeout)
	}
	return fmt.Errorf("%s %s: %w", op, c.addr, err)
}
