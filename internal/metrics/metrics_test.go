package metrics

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/muurk/webosctl/internal/session"
)

func TestMetrics_StateChanged(t *testing.T) {
	m := New()

	m.StateChanged(session.Disconnected, session.Connecting)
	m.StateChanged(session.Connecting, session.Handshaking)
	m.StateChanged(session.Handshaking, session.Ready)

	if got := testutil.ToFloat64(m.State); got != float64(session.Ready) {
		t.Errorf("session_state = %v, want %v", got, float64(session.Ready))
	}
	if got := testutil.ToFloat64(m.Transitions.WithLabelValues("ready")); got != 1 {
		t.Errorf("transitions{to=ready} = %v, want 1", got)
	}
}

func TestMetrics_Requests(t *testing.T) {
	m := New()
	const uri = "ssap://audio/setVolume"

	m.RequestIssued(uri)
	m.RequestIssued(uri)
	m.RequestCompleted(uri, 20*time.Millisecond)
	m.RequestAbandoned(uri, "context")
	m.PendingChanged(3)

	tests := []struct {
		outcome string
		want    float64
	}{
		{"issued", 2},
		{"completed", 1},
		{"abandoned_context", 1},
	}
	for _, tt := range tests {
		if got := testutil.ToFloat64(m.Requests.WithLabelValues(uri, tt.outcome)); got != tt.want {
			t.Errorf("requests{outcome=%s} = %v, want %v", tt.outcome, got, tt.want)
		}
	}
	if got := testutil.ToFloat64(m.Pending); got != 3 {
		t.Errorf("pending_requests = %v, want 3", got)
	}
	if got := testutil.CollectAndCount(m.RequestDuration); got != 1 {
		t.Errorf("request_duration series = %d, want 1", got)
	}
}

func TestMetrics_Frames(t *testing.T) {
	m := New()

	m.FrameDropped("decode")
	m.UnsolicitedFrame(true)
	m.UnsolicitedFrame(false)
	m.UnsolicitedFrame(false)

	if got := testutil.ToFloat64(m.FramesDropped.WithLabelValues("decode")); got != 1 {
		t.Errorf("frames_dropped{decode} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.UnsolicitedFrames.WithLabelValues("false")); got != 2 {
		t.Errorf("unsolicited{delivered=false} = %v, want 2", got)
	}
}

func TestMetrics_WriteText(t *testing.T) {
	m := New()
	m.RequestIssued("ssap://system/turnOff")
	m.PendingChanged(1)

	var buf bytes.Buffer
	if err := m.WriteText(&buf); err != nil {
		t.Fatalf("WriteText() error = %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"# TYPE webosctl_requests_total counter",
		`webosctl_requests_total{outcome="issued",uri="ssap://system/turnOff"} 1`,
		"webosctl_pending_requests 1",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("WriteText() output missing %q:\n%s", want, out)
		}
	}
}

func TestMetrics_IndependentRegistries(t *testing.T) {
	a, b := New(), New()
	a.PendingChanged(5)

	if got := testutil.ToFloat64(b.Pending); got != 0 {
		t.Errorf("second instance pending = %v, want 0", got)
	}
}
