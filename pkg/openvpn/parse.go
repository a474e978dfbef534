package openvpn

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/cuemby/vpnwatch/pkg/log"
	"github.com/cuemby/vpnwatch/pkg/types"
)

const (
	// RecordTag marks the status rows that describe a connected client
	RecordTag = "CLIENT_LIST"

	// EndMarker terminates a multi-line management response
	EndMarker = "END"
)

// Positions of the tab-separated fields of a CLIENT_LIST row
const (
	fieldName           = 1
	fieldAddress        = 2
	fieldBytesReceived  = 5
	fieldBytesSent      = 6
	fieldConnectedSince = 8

	minClientFields = fieldConnectedSince + 1
)

// MalformedPolicy decides what a malformed CLIENT_LIST row does to a poll
type MalformedPolicy string

const (
	// PolicyAbort fails the whole poll on the first malformed row
	PolicyAbort MalformedPolicy = "abort"
	// PolicySkip drops the malformed row and keeps parsing
	PolicySkip MalformedPolicy = "skip"
)

// ParsePolicy converts a configuration value to a MalformedPolicy
func ParsePolicy(s string) (MalformedPolicy, error) {
	switch MalformedPolicy(strings.ToLower(s)) {
	case PolicyAbort, "":
		return PolicyAbort, nil
	case PolicySkip:
		return PolicySkip, nil
	default:
		return "", fmt.Errorf("unknown malformed line policy %q (want abort or skip)", s)
	}
}

// ParseStatus extracts the client roster from a raw status response.
// Lines that are not CLIENT_LIST rows are ignored, as are rows whose
// name is UNDEF.
func ParseStatus(raw string, policy MalformedPolicy) (types.Roster, error) {
	roster := types.NewRoster()

	for i, line := range strings.Split(raw, "\n") {
		if !strings.HasPrefix(line, RecordTag) {
			continue
		}

		client, err := ParseClientLine(line)
		if err != nil {
			if policy == PolicySkip {
				logger := log.WithComponent("openvpn")
				logger.Warn().Err(err).Int("line", i+1).Msg("Skipping malformed client line")
				continue
			}
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}

		roster.Add(client)
	}

	return roster, nil
}

// ParseClientLine parses a single CLIENT_LIST row.
//
// Field layout by index: 1 name, 2 real address (host:port, the port is
// dropped), 5 bytes received, 6 bytes sent, 8 connected since as epoch
// seconds. Additional trailing fields are ignored.
func ParseClientLine(line string) (*types.Client, error) {
	fields := strings.Split(strings.TrimRight(line, "\r"), "\t")
	if len(fields) < minClientFields || fields[0] != RecordTag {
		return nil, fmt.Errorf("%w: expected at least %d tab-separated fields, got %d",
			ErrMalformedLine, minClientFields, len(fields))
	}

	name := fields[fieldName]
	address, _, _ := strings.Cut(fields[fieldAddress], ":")

	received, err := parseCounter(fields[fieldBytesReceived])
	if err != nil {
		return nil, fmt.Errorf("%w: bytes received: %v", ErrMalformedLine, err)
	}

	sent, err := parseCounter(fields[fieldBytesSent])
	if err != nil {
		return nil, fmt.Errorf("%w: bytes sent: %v", ErrMalformedLine, err)
	}

	since, err := strconv.ParseInt(strings.TrimSpace(fields[fieldConnectedSince]), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: connected since: %v", ErrMalformedLine, err)
	}

	return types.NewClient(name, address, time.Unix(since, 0), received, sent), nil
}

func parseCounter(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0, fmt.Errorf("invalid counter %q", s)
	}
	return v, nil
}
