package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
)

// TestSetup_WritesJSON はログがJSON形式で出力されることを検証する。
func TestSetup_WritesJSON(t *testing.T) {
	var buf bytes.Buffer
	log := Setup(&buf, slog.LevelInfo)

	log.Info("test message", slog.String("key", "value"))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if entry["msg"] != "test message" {
		t.Errorf("msg = %v, want test message", entry["msg"])
	}
	if entry["key"] != "value" {
		t.Errorf("key = %v, want value", entry["key"])
	}
	if entry["level"] != "INFO" {
		t.Errorf("level = %v, want INFO", entry["level"])
	}
}

// TestSetup_RespectsLevel は指定レベル未満のログが抑制されることを検証する。
func TestSetup_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := Setup(&buf, slog.LevelWarn)

	log.Info("suppressed")
	if buf.Len() != 0 {
		t.Errorf("info log should be suppressed at warn level: %s", buf.String())
	}

	log.Warn("emitted")
	if buf.Len() == 0 {
		t.Error("warn log should be emitted at warn level")
	}
}

// TestParseLevel はLOG_LEVEL文字列の解釈を検証する。
func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{input: "debug", want: slog.LevelDebug},
		{input: "info", want: slog.LevelInfo},
		{input: "warn", want: slog.LevelWarn},
		{input: "error", want: slog.LevelError},
		{input: "ERROR", want: slog.LevelError},
		{input: "", want: slog.LevelInfo},
		{input: "unknown", want: slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := parseLevel(tt.input); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

// TestSetupDefault_SetsGlobalLogger はグローバルロガーが差し替わることを検証する。
func TestSetupDefault_SetsGlobalLogger(t *testing.T) {
	original := slog.Default()
	defer slog.SetDefault(original)

	var buf bytes.Buffer
	SetupDefault(&buf)

	slog.Info("global message")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if entry["msg"] != "global message" {
		t.Errorf("msg = %v, want global message", entry["msg"])
	}
}
