package openvpn

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func row(fields ...string) string {
	return strings.Join(fields, "\t")
}

func TestParseClientLine(t *testing.T) {
	line := row("CLIENT_LIST", "alice", "10.0.0.5:51234", "10.8.0.2", "", "100", "200",
		"2024-01-01 00:00:00", "1704067200", "UNDEF", "0", "0", "AES-256-GCM")

	client, err := ParseClientLine(line)
	require.NoError(t, err)

	assert.Equal(t, "alice", client.Name)
	assert.Equal(t, "10.0.0.5", client.Address)
	assert.Equal(t, float64(100), client.BytesReceived)
	assert.Equal(t, float64(200), client.BytesSent)
	assert.True(t, client.ConnectedSince.Equal(time.Unix(1704067200, 0)))
}

func TestParseClientLine_Malformed(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{
			name: "too few fields",
			line: row("CLIENT_LIST", "alice", "10.0.0.5:1194", "10.8.0.2"),
		},
		{
			name: "non numeric bytes received",
			line: row("CLIENT_LIST", "alice", "10.0.0.5:1194", "10.8.0.2", "", "lots", "200", "x", "1704067200"),
		},
		{
			name: "non numeric bytes sent",
			line: row("CLIENT_LIST", "alice", "10.0.0.5:1194", "10.8.0.2", "", "100", "", "x", "1704067200"),
		},
		{
			name: "negative counter",
			line: row("CLIENT_LIST", "alice", "10.0.0.5:1194", "10.8.0.2", "", "-1", "200", "x", "1704067200"),
		},
		{
			name: "NaN counter",
			line: row("CLIENT_LIST", "alice", "10.0.0.5:1194", "10.8.0.2", "", "NaN", "200", "x", "1704067200"),
		},
		{
			name: "bad timestamp",
			line: row("CLIENT_LIST", "alice", "10.0.0.5:1194", "10.8.0.2", "", "100", "200", "x", "yesterday"),
		},
		{
			name: "comma separated",
			line: "CLIENT_LIST,alice,10.0.0.5:1194,10.8.0.2,,100,200,x,1704067200",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseClientLine(tt.line)
			assert.ErrorIs(t, err, ErrMalformedLine)
		})
	}
}

func TestParseClientLine_AddressWithoutPort(t *testing.T) {
	client, err := ParseClientLine(row("CLIENT_LIST", "bob", "192.168.1.9", "", "", "0", "0", "", "0"))
	require.NoError(t, err)
	assert.Equal(t, "192.168.1.9", client.Address)
}

func TestParseClientLine_FloatCountersAndCarriageReturn(t *testing.T) {
	client, err := ParseClientLine(row("CLIENT_LIST", "bob", "192.168.1.9:1", "", "", "1.5e3", "2048", "", "1704067200\r"))
	require.NoError(t, err)
	assert.Equal(t, 1500.0, client.BytesReceived)
	assert.Equal(t, 2048.0, client.BytesSent)
}

const statusDoc = ">INFO:OpenVPN Management Interface Version 5 -- type 'help' for more info\r\n" +
	"TITLE\tOpenVPN 2.6.8\r\n" +
	"HEADER\tCLIENT_LIST\tCommon Name\tReal Address\tVirtual Address\tVirtual IPv6 Address\tBytes Received\tBytes Sent\tConnected Since\tConnected Since (time_t)\r\n" +
	"CLIENT_LIST\talice\t10.0.0.5:51234\t10.8.0.2\t\t100\t200\t2024-01-01 00:00:00\t1704067200\r\n" +
	"CLIENT_LIST\tUNDEF\t10.0.0.7:40000\t\t\t0\t0\t2024-01-01 00:00:00\t1704067200\r\n" +
	"CLIENT_LIST\tbob\t10.0.0.6:51235\t10.8.0.3\t\t300\t400\t2024-01-01 00:00:00\t1704067300\r\n" +
	"ROUTING_TABLE\t10.8.0.2\talice\t10.0.0.5:51234\t2024-01-01 00:00:00\t1704067200\r\n" +
	"END\r\n"

func TestParseStatus(t *testing.T) {
	roster, err := ParseStatus(statusDoc, PolicyAbort)
	require.NoError(t, err)

	assert.Equal(t, []string{"alice", "bob"}, roster.Names())
	assert.Equal(t, "10.0.0.6", roster["bob"].Address)
	assert.NotContains(t, roster, "UNDEF")
}

func TestParseStatus_Empty(t *testing.T) {
	roster, err := ParseStatus("END\r\n", PolicyAbort)
	require.NoError(t, err)
	assert.Empty(t, roster)
}

func TestParseStatus_DuplicateNameKeepsLast(t *testing.T) {
	doc := row("CLIENT_LIST", "alice", "10.0.0.5:1", "", "", "1", "1", "", "1") + "\n" +
		row("CLIENT_LIST", "alice", "10.0.0.9:1", "", "", "2", "2", "", "2") + "\nEND\n"

	roster, err := ParseStatus(doc, PolicyAbort)
	require.NoError(t, err)
	require.Len(t, roster, 1)
	assert.Equal(t, "10.0.0.9", roster["alice"].Address)
}

const malformedDoc = "CLIENT_LIST\talice\t10.0.0.5:51234\t10.8.0.2\t\t100\t200\t\t1704067200\n" +
	"CLIENT_LIST\tbroken\t10.0.0.6\n" +
	"CLIENT_LIST\tbob\t10.0.0.6:51235\t10.8.0.3\t\t300\t400\t\t1704067300\n" +
	"END\n"

func TestParseStatus_MalformedAbort(t *testing.T) {
	roster, err := ParseStatus(malformedDoc, PolicyAbort)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedLine)
	assert.Contains(t, err.Error(), "line 2")
	assert.Nil(t, roster)
}

func TestParseStatus_MalformedSkip(t *testing.T) {
	roster, err := ParseStatus(malformedDoc, PolicySkip)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, roster.Names())
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicyAbort, p)

	p, err = ParsePolicy("SKIP")
	require.NoError(t, err)
	assert.Equal(t, PolicySkip, p)

	_, err = ParsePolicy("ignore")
	assert.Error(t, err)
}
