package openvpn

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/cuemby/vpnwatch/pkg/health"
)

// greetingPrefix starts the line the daemon sends on every new session
const greetingPrefix = ">INFO:"

// Greeter checks that the management port is held by an OpenVPN daemon
// without issuing any command. It reads the session greeting and hangs up.
type Greeter struct {
	// Address is the management endpoint (e.g., "localhost:5555")
	Address string

	// Timeout bounds the connect and the greeting read (default: 5 seconds)
	Timeout time.Duration
}

// NewGreeter creates a greeting checker for the management endpoint
func NewGreeter(address string) *Greeter {
	return &Greeter{
		Address: address,
		Timeout: 5 * time.Second,
	}
}

// WithTimeout sets the connect and read timeout
func (g *Greeter) WithTimeout(timeout time.Duration) *Greeter {
	g.Timeout = timeout
	return g
}

// Greet connects and returns the daemon's greeting without the >INFO: prefix
func (g *Greeter) Greet(ctx context.Context) (string, error) {
	dialer := &net.Dialer{
		Timeout: g.Timeout,
	}

	conn, err := dialer.DialContext(ctx, "tcp", g.Address)
	if err != nil {
		return "", &ProtocolError{Op: OpDial, Address: g.Address, Err: err}
	}
	defer conn.Close()

	if g.Timeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(g.Timeout))
	}
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetReadDeadline(time.Unix(1, 0))
	})
	defer stop()

	line, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return "", &ProtocolError{Op: OpGreet, Address: g.Address, Err: err}
	}

	line = strings.TrimRight(line, "\r\n")
	greeting, ok := strings.CutPrefix(line, greetingPrefix)
	if !ok {
		return "", &ProtocolError{
			Op:      OpGreet,
			Address: g.Address,
			Err:     fmt.Errorf("%w: %q", ErrUnexpectedGreeting, line),
		}
	}

	if i := strings.Index(greeting, " -- "); i >= 0 {
		greeting = greeting[:i]
	}
	return greeting, nil
}

// Check reports whether the endpoint greets like a management interface
func (g *Greeter) Check(ctx context.Context) health.Result {
	start := time.Now()

	greeting, err := g.Greet(ctx)
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
		Message:   fmt.Sprintf("%s greeted: %s", g.Address, greeting),
		CheckedAt: start,
		Duration:  time.Since(start),
	}
}

// Type returns the health check type
func (g *Greeter) Type() health.CheckType {
	return health.CheckTypeGreeting
}
