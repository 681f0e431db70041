package logging

import (
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"DEBUG", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"warning", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"bogus", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseLevel(tt.input); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestInitialize_SilentByDefault(t *testing.T) {
	t.Setenv(LogLevelEnvVar, "")

	if err := Initialize(""); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if GetLogger().Core().Enabled(zapcore.ErrorLevel) {
		t.Error("expected nop logger when no level is configured")
	}
}

func TestInitialize_FromEnv(t *testing.T) {
	t.Setenv(LogLevelEnvVar, "warn")

	if err := Initialize(""); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	defer SetLogger(nil)

	if !GetLogger().Core().Enabled(zapcore.WarnLevel) {
		t.Error("expected warn level to be enabled")
	}
	if GetLogger().Core().Enabled(zapcore.InfoLevel) {
		t.Error("expected info level to be disabled")
	}
}

func TestHexDump(t *testing.T) {
	if got := HexDump(nil); got != "" {
		t.Errorf("HexDump(nil) = %q, want empty", got)
	}
	if got := HexDump([]byte{0xde, 0xad}); got != "dead" {
		t.Errorf("HexDump() = %q, want %q", got, "dead")
	}

	long := make([]byte, 300)
	if got := HexDump(long); !strings.HasSuffix(got, "...") || len(got) != 2*256+3 {
		t.Errorf("HexDump(300 bytes) has length %d, want truncated dump", len(got))
	}
}

func TestASCIIDump(t *testing.T) {
	got := ASCIIDump([]byte("ok\x00\n!"))
	if got != "ok..!" {
		t.Errorf("ASCIIDump() = %q, want %q", got, "ok..!")
	}
}

func TestLogUndecodable(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := zap.New(core)

	LogUndecodable(l, []byte("{bad"), errTest("unexpected EOF"))

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("got %d log entries, want 1", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["ascii"] != "{bad" {
		t.Errorf("ascii field = %v, want %q", fields["ascii"], "{bad")
	}
}

func TestLogFrame_OnlyAtDebug(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	LogFrame(zap.New(core), "sent", []byte(`{"id":"1"}`))
	if logs.Len() != 0 {
		t.Errorf("LogFrame logged %d entries at info level, want 0", logs.Len())
	}

	core, logs = observer.New(zapcore.DebugLevel)
	LogFrame(zap.New(core), "sent", []byte(`{"id":"1"}`))
	if logs.Len() != 1 {
		t.Errorf("LogFrame logged %d entries at debug level, want 1", logs.Len())
	}
}

func countFields(fields []zapcore.Field, key string) int {
	n := 0
	for _, f := range fields {
		if f.Key == key {
			n++
		}
	}
	return n
}

func TestConnectionEvents(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	l := zap.New(core)

	LogConnection(l, "10.0.0.5:3000", "opened")
	LogSessionEvent(l.With(zap.String("remote_addr", "10.0.0.6")), "ready")

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("got %d log entries, want 2", len(entries))
	}
	for i, want := range []string{"10.0.0.5:3000", "10.0.0.6"} {
		if n := countFields(entries[i].Context, "remote_addr"); n != 1 {
			t.Errorf("entry %d has %d remote_addr fields, want 1", i, n)
		}
		if got := entries[i].ContextMap()["remote_addr"]; got != want {
			t.Errorf("entry %d remote_addr = %v, want %q", i, got, want)
		}
	}
}

type errTest string

func (e errTest) Error() string { return string(e) }
