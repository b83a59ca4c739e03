package logger

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		config    *Config
		wantError bool
	}{
		{name: "default", config: DefaultConfig()},
		{name: "debug", config: DebugConfig()},
		{name: "bad level", config: &Config{Level: "loud", Format: TextFormat, Output: StderrOutput}, wantError: true},
		{name: "bad format", config: &Config{Level: InfoLevel, Format: "xml", Output: StderrOutput}, wantError: true},
		{name: "bad output", config: &Config{Level: InfoLevel, Format: TextFormat, Output: "syslog"}, wantError: true},
		{name: "file without path", config: &Config{Level: InfoLevel, Format: JSONFormat, Output: FileOutput}, wantError: true},
		{name: "discard", config: &Config{Level: InfoLevel, Format: JSONFormat, Output: DiscardOutput}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantError {
				t.Errorf("Validate() error = %v, wantError %v", err, tt.wantError)
			}
		})
	}
}

func TestWithFieldsArePropagated(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, DebugLevel)

	log.WithComponent("engine").
		WithField("run_id", "abc").
		WithError(errors.New("boom")).
		Info("stage finished")

	out := buf.String()
	for _, want := range []string{"component=engine", "run_id=abc", "error=boom", "stage finished"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in log output %q", want, out)
		}
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, WarnLevel)

	log.Info("hidden")
	log.Warn("shown")

	if strings.Contains(buf.String(), "hidden") {
		t.Error("info entry should be filtered at warn level")
	}
	if !strings.Contains(buf.String(), "shown") {
		t.Error("warn entry should be written")
	}
}

func TestProgressTracker(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(ProgressConfig{
		Operation: "load",
		Logger:    NewWithWriter(&buf, DebugLevel),
	})

	for i := 0; i < 3; i++ {
		tracker.Increment()
	}
	tracker.Complete()

	if tracker.Current() != 3 {
		t.Errorf("expected 3 processed, got %d", tracker.Current())
	}
	if !strings.Contains(buf.String(), "processed=3") {
		t.Errorf("expected completion entry with processed=3, got %q", buf.String())
	}
}

func TestOperationLogger(t *testing.T) {
	var buf bytes.Buffer
	op := NewOperationLogger("reconcile", NewWithWriter(&buf, InfoLevel)).WithField("run_id", "r1")

	op.Step("stage_a", Fields{"matched": 2})
	op.Success("done")

	out := buf.String()
	for _, want := range []string{"step=stage_a", "matched=2", "run_id=r1", "status=success"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in %q", want, out)
		}
	}
}
