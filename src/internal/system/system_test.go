package system

import (
	"strings"
	"testing"
)

func TestAppVersion(t *testing.T) {
	old := Version
	defer func() { Version = old }()

	Version = "v1.4.0"
	if got := AppVersion(); got != "v1.4.0" {
		t.Errorf("AppVersion() = %q", got)
	}
	if got := Describe(); !strings.HasPrefix(got, "v1.4.0 (") {
		t.Errorf("Describe() = %q", got)
	}

	Version = ""
	if got := AppVersion(); got == "" {
		t.Error("AppVersion() is empty without a build version")
	}
}
