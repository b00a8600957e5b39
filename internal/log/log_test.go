package log

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"debug", zerolog.DebugLevel},
		{"INFO", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"off", zerolog.Disabled},
		{"bogus", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestValidLevel(t *testing.T) {
	if !ValidLevel("debug") || !ValidLevel("Warn") {
		t.Error("known levels should be valid")
	}
	if ValidLevel("verbose") {
		t.Error("unknown level should be invalid")
	}
}

func TestJSONLogger_Level(t *testing.T) {
	var buf bytes.Buffer
	l := NewJSONLogger(&buf, "warn")

	l.Info().Msg("hidden")
	if buf.Len() != 0 {
		t.Fatalf("info logged at warn level: %s", buf.String())
	}

	l.Warn().Str("txid", "abc").Msg("shown")
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if entry["message"] != "shown" || entry["txid"] != "abc" {
		t.Errorf("unexpected entry: %v", entry)
	}
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	saved := Logger
	defer func() { Logger = saved }()

	Logger = NewJSONLogger(&buf, "info")
	c := WithComponent("builder")
	c.Info().Msg("x")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if entry["component"] != "builder" {
		t.Errorf("component = %v, want builder", entry["component"])
	}
}

func TestInit_File(t *testing.T) {
	saved := Logger
	defer func() {
		Logger = saved
		initComponentLoggers()
	}()

	path := filepath.Join(t.TempDir(), "kaswallet.log")
	if err := Init("debug", true, path); err != nil {
		t.Fatalf("Init() error: %v", err)
	}
	Submit.Info().Str("txid", "aa").Msg("Transaction accepted")
	Benchmark(Builder, "build")()

	fi, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if fi.Mode().Perm() != 0600 {
		t.Errorf("log file mode = %v, want 0600", fi.Mode().Perm())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := bytes.Split(bytes.TrimSpace(data), []byte("\n"))
	if len(lines) != 2 {
		t.Fatalf("got %d log lines, want 2: %s", len(lines), data)
	}
	var entry map[string]any
	if err := json.Unmarshal(lines[1], &entry); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if entry["component"] != "builder" || entry["operation"] != "build" {
		t.Errorf("unexpected benchmark entry: %v", entry)
	}
}
