package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestSetVerbosityFiltersOutput(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() { SetVerbosity(0) })

	SetVerbosity(0)
	Debugf("hidden %d", 1)
	Infof("shown %d", 2)
	if strings.Contains(buf.String(), "hidden") {
		t.Fatalf("debug line printed at info level: %q", buf.String())
	}
	if !strings.Contains(buf.String(), "shown 2") {
		t.Fatalf("info line missing: %q", buf.String())
	}

	buf.Reset()
	SetVerbosity(1)
	Debugf("now visible")
	Tracef("still hidden")
	if !strings.Contains(buf.String(), "now visible") || strings.Contains(buf.String(), "still hidden") {
		t.Fatalf("unexpected debug-level output: %q", buf.String())
	}

	buf.Reset()
	SetVerbosity(7)
	Tracef("trace line")
	if Verbosity() != 2 || LevelName() != "trace" {
		t.Fatalf("verbosity clamp: got %d/%s", Verbosity(), LevelName())
	}
	if !strings.Contains(buf.String(), "TRC") {
		t.Fatalf("trace level label missing: %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in        string
		want      Level
		wantCount int
		wantErr   bool
	}{
		{in: "error", want: LevelError},
		{in: "WARNING", want: LevelWarn},
		{in: "info", want: LevelInfo},
		{in: "", want: LevelInfo},
		{in: "debug", want: LevelDebug, wantCount: 1},
		{in: "trace", want: LevelTrace, wantCount: 2},
		{in: "loud", want: LevelInfo, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, count, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got != tt.want || count != tt.wantCount {
				t.Fatalf("ParseLevel(%q) = %v,%d want %v,%d", tt.in, got, count, tt.want, tt.wantCount)
			}
		})
	}
}

func TestSetLevelErrorSuppressesWarnings(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() { SetVerbosity(0) })

	SetLevel(LevelError)
	Warnf("quiet")
	Errorf("loud")
	if strings.Contains(buf.String(), "quiet") || !strings.Contains(buf.String(), "loud") {
		t.Fatalf("unexpected output: %q", buf.String())
	}
}
