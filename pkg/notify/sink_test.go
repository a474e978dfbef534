package notify

import (
	"bytes"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/vpnwatch/pkg/log"
	"github.com/cuemby/vpnwatch/pkg/notify/notifytest"
	"github.com/cuemby/vpnwatch/pkg/types"
)

func testClient(name string) *types.Client {
	return types.NewClient(name, "10.8.0.2", time.Unix(1700000000, 0), 10, 20)
}

func TestMulti(t *testing.T) {
	first, second := &notifytest.Recorder{}, &notifytest.Recorder{}
	m := Multi{first, second}

	m.ClientConnected(testClient("alice"))
	m.ClientDisconnected(testClient("bob"))
	m.Alert("down")

	for _, r := range []*notifytest.Recorder{first, second} {
		assert.Equal(t, []string{"alice"}, r.Connected())
		assert.Equal(t, []string{"bob"}, r.Disconnected())
		assert.Equal(t, []string{"down"}, r.Alerts())
	}
}

func TestLog(t *testing.T) {
	var buf bytes.Buffer
	log.Init(log.Config{Level: log.DebugLevel, JSONOutput: true, Output: &buf})

	sink := NewLog(&Formatter{Location: time.UTC, Now: func() time.Time { return time.Unix(1700000060, 0) }})
	sink.ClientConnected(testClient("alice"))
	sink.ClientDisconnected(testClient("alice"))
	sink.Alert("3 consecutive failed calls to openvpn server, please check the error logs")

	out := buf.String()
	assert.Contains(t, out, `"component":"notify"`)
	assert.Contains(t, out, "client alice has connected from ip address 10.8.0.2")
	assert.Contains(t, out, "approximately 1.0 minutes")
	assert.Contains(t, out, `"level":"warn"`)
}

func TestAsync_PreservesOrder(t *testing.T) {
	rec := &notifytest.Recorder{}
	a := NewAsync(rec)

	a.ClientDisconnected(testClient("carol"))
	a.ClientConnected(testClient("alice"))
	a.ClientConnected(testClient("bob"))
	a.Alert("down")
	a.Stop()

	calls := rec.Calls()
	require.Len(t, calls, 4)
	assert.Equal(t, notifytest.KindDisconnected, calls[0].Kind)
	assert.Equal(t, "carol", calls[0].Client.Name)
	assert.Equal(t, []string{"alice", "bob"}, rec.Connected())
	assert.Equal(t, notifytest.KindAlert, calls[3].Kind)
	assert.Equal(t, "down", calls[3].Message)
}

func TestAsync_DropsAfterStop(t *testing.T) {
	rec := &notifytest.Recorder{}
	a := NewAsync(rec)
	a.Stop()

	a.Alert("late")

	assert.Empty(t, rec.Calls())
}

type blockingSink struct {
	notifytest.Recorder
	release chan struct{}
}

func (b *blockingSink) Alert(message string) {
	<-b.release
	b.Recorder.Alert(message)
}

func TestAsync_DoesNotBlockCaller(t *testing.T) {
	sink := &blockingSink{release: make(chan struct{})}
	a := NewAsync(sink)

	done := make(chan struct{})
	go func() {
		a.Alert("one")
		a.Alert("two")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Alert blocked on a slow sink")
	}

	close(sink.release)
	a.Stop()
	assert.Equal(t, []string{"one", "two"}, sink.Alerts())
}

type slowSink struct {
	notifytest.Recorder
	delay time.Duration
}

func (s *slowSink) ClientDisconnected(c *types.Client) {
	time.Sleep(s.delay)
	s.Recorder.ClientDisconnected(c)
}

func TestAsync_SlowSinkReceivesEveryNotification(t *testing.T) {
	sink := &slowSink{delay: time.Millisecond}
	a := NewAsync(sink)

	const total = 200
	want := make([]string, 0, total)
	published := make(chan struct{})
	go func() {
		for i := 0; i < total; i++ {
			name := fmt.Sprintf("client-%03d", i)
			want = append(want, name)
			a.ClientDisconnected(testClient(name))
		}
		close(published)
	}()

	select {
	case <-published:
	case <-time.After(time.Second):
		t.Fatal("publishing waited on the slow sink")
	}

	a.Stop()
	assert.Equal(t, want, sink.Disconnected())
	assert.Zero(t, a.Pending())
}
