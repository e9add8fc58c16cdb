package app

import (
	"errors"
	"strings"
	"testing"
)

func TestCopyFallsBackToOSC52(t *testing.T) {
	origSystem, origOSC := clipboardWriteAll, clipboardWriteOSC52
	t.Cleanup(func() { clipboardWriteAll, clipboardWriteOSC52 = origSystem, origOSC })

	var oscGot string
	clipboardWriteAll = func(string) error { return errors.New("no helper") }
	clipboardWriteOSC52 = func(text string) error { oscGot = text; return nil }

	if err := copyTextToClipboard("payload"); err != nil {
		t.Fatalf("copy: %v", err)
	}
	if oscGot != "payload" {
		t.Fatalf("OSC52 got %q", oscGot)
	}
}

func TestCopyReportsBothFailures(t *testing.T) {
	origSystem, origOSC := clipboardWriteAll, clipboardWriteOSC52
	t.Cleanup(func() { clipboardWriteAll, clipboardWriteOSC52 = origSystem, origOSC })

	clipboardWriteAll = func(string) error { return errors.New("system down") }
	clipboardWriteOSC52 = func(string) error { return errors.New("tty closed") }

	err := copyTextToClipboard("payload")
	if err == nil || !strings.Contains(err.Error(), "tty closed") {
		t.Fatalf("err = %v", err)
	}
}

func TestOSC52DisabledByEnv(t *testing.T) {
	t.Setenv("CONDUIT_DISABLE_OSC52", "1")
	if shouldAttemptOSC52() {
		t.Fatalf("OSC52 should be disabled")
	}
}

func TestOSC52RequiresRealTerminal(t *testing.T) {
	t.Setenv("CONDUIT_DISABLE_OSC52", "")
	t.Setenv("TERM", "dumb")
	if shouldAttemptOSC52() {
		t.Fatalf("dumb terminal should not attempt OSC52")
	}
}
