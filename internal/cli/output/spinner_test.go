package output

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestSpinner_StartStop(t *testing.T) {
	var buf bytes.Buffer
	s := NewSpinner(&buf, "restarting explorer.exe")
	s.interval = 5 * time.Millisecond

	s.Start()
	s.Start()
	time.Sleep(30 * time.Millisecond)
	s.Stop()

	out := buf.String()
	if !strings.Contains(out, "\r| restarting explorer.exe") {
		t.Errorf("first frame missing, got %q", out)
	}
	if !strings.HasSuffix(out, "\r\033[K") {
		t.Errorf("Stop should clear the line, got %q", out)
	}
}

func TestSpinner_Done(t *testing.T) {
	var buf bytes.Buffer
	s := NewSpinner(&buf, "working")

	s.Start()
	s.Done("shell restarted")

	if !strings.HasSuffix(buf.String(), "shell restarted\n") {
		t.Errorf("Done output = %q", buf.String())
	}

	// a second stop writes nothing
	n := buf.Len()
	s.Stop()
	if buf.Len() != n {
		t.Error("Stop after Done should be a no-op")
	}
}

func TestSpinner_StopWithoutStart(t *testing.T) {
	var buf bytes.Buffer
	NewSpinner(&buf, "idle").Stop()
	if buf.Len() != 0 {
		t.Errorf("Stop without Start wrote %q", buf.String())
	}
}
