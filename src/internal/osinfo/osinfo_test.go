package osinfo

import (
	"context"
	"errors"
	"strings"
	"testing"

	"status-image/src/internal/shell"
)

const ubuntuLSB = `DISTRIB_ID=Ubuntu
DISTRIB_RELEASE=22.04
DISTRIB_CODENAME=jammy
DISTRIB_DESCRIPTION="Ubuntu 22.04.3 LTS"
`

const ubuntuOSRelease = `PRETTY_NAME="Ubuntu 22.04.3 LTS"
NAME="Ubuntu"
VERSION_ID="22.04"
VERSION="22.04.3 LTS (Jammy Jellyfish)"
VERSION_CODENAME=jammy
ID=ubuntu
ID_LIKE=debian
`

func fixedRunner(stdout string, err error) shell.Runner {
	return func(ctx context.Context, command string) (shell.Result, error) {
		return shell.Result{Stdout: stdout}, err
	}
}

func TestIdentityFromRelease(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		input       string
		wantDistro  string
		wantRelease string
	}{
		{
			name:        "no recognized keys",
			input:       "ID=something\nHOME_URL=https://example.org/\n",
			wantDistro:  "unknown",
			wantRelease: "unknown",
		},
		{
			name:        "empty input",
			input:       "",
			wantDistro:  "unknown",
			wantRelease: "unknown",
		},
		{
			name:        "name and version id",
			input:       "NAME=\"Ubuntu\"\nVERSION_ID=\"22.04\"\n",
			wantDistro:  "Ubuntu",
			wantRelease: "22.04",
		},
		{
			name:        "pretty name prefix stripped",
			input:       "NAME=\"Ubuntu\"\nPRETTY_NAME=\"Ubuntu 22.04.3 LTS\"\n",
			wantDistro:  "Ubuntu",
			wantRelease: "22.04.3 LTS",
		},
		{
			name:        "codename suffix dropped",
			input:       "NAME=\"Debian GNU/Linux\"\nVERSION=\"11 (bullseye)\"\nVERSION_ID=\"11\"\n",
			wantDistro:  "Debian GNU/Linux",
			wantRelease: "11",
		},
		{
			name:        "lsb and os-release combined",
			input:       ubuntuLSB + ubuntuOSRelease,
			wantDistro:  "Ubuntu",
			wantRelease: "22.04.3 LTS",
		},
		{
			name:        "distrib release used without version",
			input:       "DISTRIB_ID='OpenWrt'\nDISTRIB_RELEASE='23.05.2'\n",
			wantDistro:  "'OpenWrt'",
			wantRelease: "'23.05.2'",
		},
		{
			name:        "pretty name not matching distro",
			input:       "NAME=\"Alpine Linux\"\nVERSION_ID=3.19.1\nPRETTY_NAME=\"Alpine v3.19\"\n",
			wantDistro:  "Alpine Linux",
			wantRelease: "3.19.1",
		},
		{
			name:        "empty quoted name",
			input:       "NAME=\"\"\n",
			wantDistro:  "unknown",
			wantRelease: "unknown",
		},
		{
			name:        "lowercase keys and spacing",
			input:       "  name = Arch Linux \nversion_id= rolling\n",
			wantDistro:  "Arch Linux",
			wantRelease: "rolling",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := IdentityFromRelease("linux", ParseRelease(tt.input))
			if got.Distro != tt.wantDistro {
				t.Errorf("distro = %q, want %q", got.Distro, tt.wantDistro)
			}
			if got.Release != tt.wantRelease {
				t.Errorf("release = %q, want %q", got.Release, tt.wantRelease)
			}
			if got.Platform != "linux" {
				t.Errorf("platform = %q, want linux", got.Platform)
			}
			if strings.Contains(got.Release, "(") || strings.Contains(got.Release, `"`) {
				t.Errorf("release %q still carries a suffix or quotes", got.Release)
			}
		})
	}
}

func TestParseRelease(t *testing.T) {
	t.Parallel()

	info := ParseRelease("NAME=\"First\"\nnot a pair\nURL=https://x.org/?a=b\nname=\"Second\"\n")
	if got := info["NAME"]; got != `"Second"` {
		t.Errorf("NAME = %q, want later value", got)
	}
	if got := info["URL"]; got != "https://x.org/?a=b" {
		t.Errorf("URL = %q, want value split on first '='", got)
	}
	if len(info) != 2 {
		t.Errorf("expected 2 keys, got %d: %v", len(info), info)
	}
}

func TestResolveLaterFileWins(t *testing.T) {
	t.Parallel()

	etc := "NAME=\"Etc Linux\"\nVERSION_ID=\"1\"\n"
	usr := "NAME=\"Usr Linux\"\nVERSION_ID=\"2\"\n"
	r := &Resolver{Platform: "linux", Run: fixedRunner(etc+usr, nil)}

	got := r.Resolve(context.Background())
	if got.Distro != "Usr Linux" || got.Release != "2" {
		t.Errorf("got %+v, want values from the later file", got)
	}
}

func TestResolvePlatforms(t *testing.T) {
	t.Parallel()

	kernel := func() string { return "Darwin Kernel Version 23.1.0: Mon Oct  9 21:27:24 PDT 2023" }

	tests := []struct {
		name         string
		platform     string
		run          shell.Runner
		wantPlatform string
		wantDistro   string
		wantRelease  string
	}{
		{
			name:         "darwin uses kernel version",
			platform:     "darwin",
			wantPlatform: "darwin",
			wantDistro:   kernel(),
		},
		{
			name:         "freebsd uses kernel version",
			platform:     "freebsd",
			wantPlatform: "freebsd",
			wantDistro:   kernel(),
		},
		{
			name:         "windows",
			platform:     "windows",
			wantPlatform: "Windows",
			wantDistro:   kernel(),
		},
		{
			name:         "android parses release files",
			platform:     "android",
			run:          fixedRunner("NAME=Android\nVERSION_ID=14\n", nil),
			wantPlatform: "android",
			wantDistro:   "Android",
			wantRelease:  "14",
		},
		{
			name:         "partial output with failing command",
			platform:     "linux",
			run:          fixedRunner(ubuntuOSRelease, errors.New("exit status 1")),
			wantPlatform: "linux",
			wantDistro:   "Ubuntu",
			wantRelease:  "22.04.3 LTS",
		},
		{
			name:         "command produced nothing",
			platform:     "linux",
			run:          fixedRunner("", errors.New("exec: \"sh\": executable file not found")),
			wantPlatform: "linux",
			wantDistro:   "unknown",
			wantRelease:  "unknown",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := &Resolver{Platform: tt.platform, Run: tt.run, KernelVersion: kernel}
			got := r.Resolve(context.Background())
			want := Identity{Platform: tt.wantPlatform, Distro: tt.wantDistro, Release: tt.wantRelease}
			if got != want {
				t.Errorf("Resolve() = %+v, want %+v", got, want)
			}
		})
	}
}

func TestResolveEmptyKernelVersion(t *testing.T) {
	t.Parallel()
	r := &Resolver{Platform: "openbsd", KernelVersion: func() string { return "  " }}
	if got := r.Resolve(context.Background()); got.Distro != "unknown" {
		t.Errorf("distro = %q, want unknown", got.Distro)
	}
}

func TestResolveAsync(t *testing.T) {
	t.Parallel()
	r := &Resolver{Platform: "linux", Run: fixedRunner(ubuntuLSB, nil)}

	id, ok := <-r.ResolveAsync(context.Background())
	if !ok {
		t.Fatal("channel closed without a value")
	}
	if id.String() != "Ubuntu 22.04" {
		t.Errorf("String() = %q, want %q", id.String(), "Ubuntu 22.04")
	}
	if _, ok := <-r.ResolveAsync(context.Background()); !ok {
		t.Fatal("second resolution produced no value")
	}
}

func TestIdentityString(t *testing.T) {
	t.Parallel()
	if got := (Identity{Distro: "Darwin 23"}).String(); got != "Darwin 23" {
		t.Errorf("String() = %q", got)
	}
	if got := (Identity{Distro: "Debian GNU/Linux", Release: "12"}).String(); got != "Debian GNU/Linux 12" {
		t.Errorf("String() = %q", got)
	}
}
