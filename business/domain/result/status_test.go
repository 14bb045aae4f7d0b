package result_test

import (
	"testing"

	"github.com/deferq/deferq/business/domain/result"
)

func TestStatusCodes(t *testing.T) {
	//the stored codes are part of the persisted layout, 2 stays unassigned
	if result.StatusWaiting != 0 {
		t.Errorf("waiting= %d, got %d", 0, result.StatusWaiting)
	}
	if result.StatusReady != 1 {
		t.Errorf("ready= %d, got %d", 1, result.StatusReady)
	}
	if result.StatusError != 3 {
		t.Errorf("error= %d, got %d", 3, result.StatusError)
	}
}

func TestStatusString(t *testing.T) {
	tests := map[result.Status]string{
		result.StatusWaiting: "waiting",
		result.StatusReady:   "ready",
		result.StatusError:   "error",
		result.Status(2):     "UNKNOWN",
		result.Status(42):    "UNKNOWN",
	}

	for status, want := range tests {
		if got := status.String(); got != want {
			t.Errorf("Status(%d).String()= %q, got %q", status, want, got)
		}
	}
}

func TestParseStatus(t *testing.T) {
	for _, name := range []string{"waiting", "ready", "error", "READY"} {
		if _, err := result.ParseStatus(name); err != nil {
			t.Errorf("expected %q to parse: %s", name, err)
		}
	}

	if _, err := result.ParseStatus("pending"); err == nil {
		t.Error("expected an invalid status to fail")
	}
}

func TestTerminal(t *testing.T) {
	if result.StatusWaiting.Terminal() {
		t.Error("expected waiting to not be terminal")
	}
	if !result.StatusReady.Terminal() {
		t.Error("expected ready to be terminal")
	}
	if !result.StatusError.Terminal() {
		t.Error("expected error to be terminal")
	}
}
