// Package openvpntest provides an in-process OpenVPN management interface
// for tests.
package openvpntest

import (
	"bufio"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/cuemby/vpnwatch/pkg/types"
)

// Banner is the greeting the daemon sends on every new management session
const Banner = ">INFO:OpenVPN Management Interface Version 5 -- type 'help' for more info\r\n"

const header = "TITLE\tOpenVPN 2.6.8 x86_64-pc-linux-gnu\r\n" +
	"TIME\t2024-01-01 00:00:00\t1704067200\r\n" +
	"HEADER\tCLIENT_LIST\tCommon Name\tReal Address\tVirtual Address\tVirtual IPv6 Address\t" +
	"Bytes Received\tBytes Sent\tConnected Since\tConnected Since (time_t)\tUsername\t" +
	"Client ID\tPeer ID\tData Channel Cipher\r\n"

const footer = "HEADER\tROUTING_TABLE\tVirtual Address\tCommon Name\tReal Address\tLast Ref\tLast Ref (time_t)\r\n" +
	"GLOBAL_STATS\tMax bcast/mcast queue length\t0\r\n" +
	"END\r\n"

// ClientLine formats a client as a status CLIENT_LIST row
func ClientLine(c *types.Client) string {
	fields := []string{
		"CLIENT_LIST",
		c.Name,
		c.Address + ":51234",
		"10.8.0.2",
		"",
		strconv.FormatFloat(c.BytesReceived, 'f', -1, 64),
		strconv.FormatFloat(c.BytesSent, 'f', -1, 64),
		c.ConnectedSince.UTC().Format("2006-01-02 15:04:05"),
		strconv.FormatInt(c.ConnectedSince.Unix(), 10),
		"UNDEF",
		"0",
		"0",
		"AES-256-GCM",
	}
	return strings.Join(fields, "\t")
}

// StatusResponse builds a complete status response listing the clients
func StatusResponse(clients ...*types.Client) string {
	return StatusResponseWithLines(clientLines(clients)...)
}

// StatusResponseWithLines builds a status response around raw rows
func StatusResponseWithLines(rows ...string) string {
	var sb strings.Builder
	sb.WriteString(header)
	for _, row := range rows {
		sb.WriteString(row)
		sb.WriteString("\r\n")
	}
	sb.WriteString(footer)
	return sb.String()
}

func clientLines(clients []*types.Client) []string {
	lines := make([]string, 0, len(clients))
	for _, c := range clients {
		lines = append(lines, ClientLine(c))
	}
	return lines
}

// Server is a fake management interface listening on loopback
type Server struct {
	listener net.Listener

	mu       sync.Mutex
	response string
	hang     bool
	commands []string
	conns    map[net.Conn]struct{}
	closed   bool

	wg sync.WaitGroup
}

// NewServer starts a fake management interface. It is closed when the
// test finishes.
func NewServer(t testing.TB) *Server {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}

	s := &Server{
		listener: listener,
		response: StatusResponse(),
		conns:    make(map[net.Conn]struct{}),
	}

	s.wg.Add(1)
	go s.serve()

	t.Cleanup(s.Close)
	return s
}

// Addr returns the host:port the server listens on
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// SetClients sets the roster returned by the next status commands
func (s *Server) SetClients(clients ...*types.Client) {
	s.SetResponse(StatusResponse(clients...))
}

// SetResponse sets the raw text returned for a status command
func (s *Server) SetResponse(raw string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.response = raw
}

// SetHang makes the server accept status commands and never answer
func (s *Server) SetHang(hang bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hang = hang
}

// Commands returns every command received so far
func (s *Server) Commands() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.commands...)
}

// Close stops the server and drops open sessions
func (s *Server) Close() {
	_ = s.listener.Close()

	s.mu.Lock()
	s.closed = true
	for conn := range s.conns {
		_ = conn.Close()
	}
	s.mu.Unlock()

	s.wg.Wait()
}

func (s *Server) serve() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}

		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			conn.Close()
			return
		}
		s.conns[conn] = struct{}{}
		s.mu.Unlock()

		s.wg.Add(1)
		go s.handle(conn)
	}
}

func (s *Server) handle(conn net.Conn) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		conn.Close()
	}()

	if _, err := fmt.Fprint(conn, Banner); err != nil {
		return
	}

	reader := bufio.NewReader(conn)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		command := strings.TrimSpace(line)

		s.mu.Lock()
		s.commands = append(s.commands, command)
		response, hang := s.response, s.hang
		s.mu.Unlock()

		switch command {
		case "status":
			if hang {
				continue
			}
			if _, err := fmt.Fprint(conn, response); err != nil {
				return
			}
		case "exit", "quit":
			return
		default:
			if _, err := fmt.Fprintf(conn, "ERROR: unknown command [%s], enter 'help' for more options\r\n", command); err != nil {
				return
			}
		}
	}
}
