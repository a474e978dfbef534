package openvpn

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/cuemby/vpnwatch/pkg/health"
	"github.com/cuemby/vpnwatch/pkg/openvpn/openvpntest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// serveLine accepts connections and writes line to each, then holds them
// open until the listener closes
func serveLine(t *testing.T, line string) string {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	var mu sync.Mutex
	var conns []net.Conn
	t.Cleanup(func() {
		listener.Close()
		mu.Lock()
		defer mu.Unlock()
		for _, conn := range conns {
			conn.Close()
		}
	})

	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			if line != "" {
				_, _ = conn.Write([]byte(line))
			}
			mu.Lock()
			conns = append(conns, conn)
			mu.Unlock()
		}
	}()

	return listener.Addr().String()
}

func TestGreeter_ManagementInterface(t *testing.T) {
	server := openvpntest.NewServer(t)

	greeter := NewGreeter(server.Addr()).WithTimeout(time.Second)
	greeting, err := greeter.Greet(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "OpenVPN Management Interface Version 5", greeting)

	result := greeter.Check(context.Background())
	assert.True(t, result.Healthy)
	assert.Contains(t, result.Message, "greeted: OpenVPN Management Interface Version 5")
	assert.Equal(t, health.CheckTypeGreeting, greeter.Type())

	// Greeting alone never issues a command
	assert.Empty(t, server.Commands())
}

func TestGreeter_Failures(t *testing.T) {
	refused := func(t *testing.T) string {
		listener, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		addr := listener.Addr().String()
		listener.Close()
		return addr
	}

	tests := []struct {
		name    string
		addr    func(t *testing.T) string
		op      Op
		wantErr error
	}{
		{
			name: "connection refused",
			addr: refused,
			op:   OpDial,
		},
		{
			name:    "another service on the port",
			addr:    func(t *testing.T) string { return serveLine(t, "SSH-2.0-OpenSSH_9.6\r\n") },
			op:      OpGreet,
			wantErr: ErrUnexpectedGreeting,
		},
		{
			name: "silent listener",
			addr: func(t *testing.T) string { return serveLine(t, "") },
			op:   OpGreet,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			addr := tt.addr(t)
			greeter := NewGreeter(addr).WithTimeout(200 * time.Millisecond)

			_, err := greeter.Greet(context.Background())
			require.Error(t, err)

			var perr *ProtocolError
			require.True(t, errors.As(err, &perr))
			assert.Equal(t, tt.op, perr.Op)
			assert.Equal(t, addr, perr.Address)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}

			result := greeter.Check(context.Background())
			assert.False(t, result.Healthy)
			assert.Contains(t, result.Message, addr)
		})
	}
}

func TestGreeter_ContextCancel(t *testing.T) {
	addr := serveLine(t, "")

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	start := time.Now()
	_, err := NewGreeter(addr).WithTimeout(5 * time.Second).Greet(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), 2*time.Second)
}
