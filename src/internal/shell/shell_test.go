package shell

import (
	"context"
	"testing"
	"time"
)

func TestExecute(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		cmd        string
		ctxTimeout time.Duration
		wantStdout string
		wantStderr string
		wantCode   int
		wantErr    bool
	}{
		{
			name:       "echo success",
			cmd:        `echo "hello"`,
			ctxTimeout: 5 * time.Second,
			wantStdout: "hello\n",
		},
		{
			name:       "exit fail",
			cmd:        `exit 1`,
			ctxTimeout: 5 * time.Second,
			wantCode:   1,
			wantErr:    true,
		},
		{
			name:       "partial output before failure",
			cmd:        `echo "NAME=Debian"; cat /nonexistent/status-image-release 2>/dev/null`,
			ctxTimeout: 5 * time.Second,
			wantStdout: "NAME=Debian\n",
			wantCode:   1,
			wantErr:    true,
		},
		{
			name:       "stderr",
			cmd:        `echo "err" >&2; exit 0`,
			ctxTimeout: 5 * time.Second,
			wantStderr: "err\n",
		},
		{
			name:       "empty",
			cmd:        "",
			ctxTimeout: 1 * time.Second,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctx, cancel := context.WithTimeout(context.Background(), tt.ctxTimeout)
			defer cancel()

			res, err := Execute(ctx, tt.cmd)

			if (err != nil) != tt.wantErr {
				t.Errorf("Execute() error = %v, wantErr %v", err, tt.wantErr)
			}
			if res.Stdout != tt.wantStdout {
				t.Errorf("Execute() stdout = %q, want %q", res.Stdout, tt.wantStdout)
			}
			if res.Stderr != tt.wantStderr {
				t.Errorf("Execute() stderr = %q, want %q", res.Stderr, tt.wantStderr)
			}
			if res.ExitCode != tt.wantCode {
				t.Errorf("Execute() code = %d, want %d", res.ExitCode, tt.wantCode)
			}
		})
	}
}

func TestExecuteCancelled(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	if _, err := Execute(ctx, "sleep 5"); err == nil {
		t.Error("expected error for cancelled command")
	}
}
