package openvpn

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"github.com/cuemby/vpnwatch/pkg/health"
	"github.com/cuemby/vpnwatch/pkg/types"
)

const (
	// CommandStatus asks the daemon for its client status
	CommandStatus = "status\n"

	// CommandExit releases the management session. The daemon serves a
	// single management client at a time.
	CommandExit = "exit\n"

	// maxResponseBytes bounds how much a single status response may carry
	maxResponseBytes = 4 << 20
)

// Client polls the OpenVPN management interface for connected clients
type Client struct {
	// Address is the management endpoint (e.g., "localhost:5555")
	Address string

	// DialTimeout bounds the TCP connect (default: 5 seconds)
	DialTimeout time.Duration

	// ReadTimeout bounds the whole request/response exchange (default: 10 seconds)
	ReadTimeout time.Duration

	// Policy decides how malformed CLIENT_LIST rows are handled
	Policy MalformedPolicy
}

// NewClient creates a management interface client
func NewClient(address string) *Client {
	return &Client{
		Address:     address,
		DialTimeout: 5 * time.Second,
		ReadTimeout: 10 * time.Second,
		Policy:      PolicyAbort,
	}
}

// WithTimeouts sets the dial and read timeouts
func (c *Client) WithTimeouts(dial, read time.Duration) *Client {
	c.DialTimeout = dial
	c.ReadTimeout = read
	return c
}

// WithPolicy sets the malformed line policy
func (c *Client) WithPolicy(policy MalformedPolicy) *Client {
	c.Policy = policy
	return c
}

// Status fetches and parses the current client roster. Every failure is
// returned as a *ProtocolError.
func (c *Client) Status(ctx context.Context) (types.Roster, error) {
	dialer := &net.Dialer{
		Timeout: c.DialTimeout,
	}

	conn, err := dialer.DialContext(ctx, "tcp", c.Address)
	if err != nil {
		return nil, c.fail(OpDial, err)
	}
	defer conn.Close()

	if c.ReadTimeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(c.ReadTimeout))
	}

	// Unblock pending I/O when the caller gives up
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Unix(1, 0))
	})
	defer stop()

	if _, err := io.WriteString(conn, CommandStatus); err != nil {
		return nil, c.fail(OpWrite, c.cause(ctx, err))
	}

	raw, err := readResponse(bufio.NewReader(conn))
	if err != nil {
		return nil, c.fail(OpRead, c.cause(ctx, err))
	}

	// Best effort, the daemon also frees the slot when the socket closes
	_, _ = io.WriteString(conn, CommandExit)

	roster, err := ParseStatus(raw, c.Policy)
	if err != nil {
		return nil, c.fail(OpParse, err)
	}

	return roster, nil
}

// Check polls the endpoint once and reports whether a roster came back
func (c *Client) Check(ctx context.Context) health.Result {
	start := time.Now()

	roster, err := c.Status(ctx)
	if err != nil {
		return health.Result{
			Healthy:   false,
			Message:   err.Error(),
			CheckedAt: start,
			Duration:  time.Since(start),
		}
	}

	return health.Result{
		Healthy:   true,
		Message:   fmt.Sprintf("status from %s lists %d clients", c.Address, len(roster)),
		CheckedAt: start,
		Duration:  time.Since(start),
	}
}

// Type returns the health check type
func (c *Client) Type() health.CheckType {
	return health.CheckTypeStatus
}

func (c *Client) fail(op Op, err error) error {
	return &ProtocolError{Op: op, Address: c.Address, Err: err}
}

// cause prefers the context error over the deadline error it provoked
func (c *Client) cause(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return err
}

// readResponse reads lines until one ends with the END marker and returns
// everything read, including the banner and the marker line.
func readResponse(r *bufio.Reader) (string, error) {
	var sb strings.Builder

	for {
		line, err := r.ReadString('\n')
		sb.WriteString(line)

		if sb.Len() > maxResponseBytes {
			return "", ErrResponseTooLarge
		}

		trimmed := strings.TrimRight(line, " \t\r\n")
		if strings.HasSuffix(trimmed, EndMarker) {
			return sb.String(), nil
		}
		if msg, ok := strings.CutPrefix(trimmed, "ERROR:"); ok {
			return "", &CommandError{Message: strings.TrimSpace(msg)}
		}

		if err != nil {
			if errors.Is(err, io.EOF) {
				return "", ErrIncompleteResponse
			}
			return "", err
		}
	}
}
