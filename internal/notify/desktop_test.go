package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDesktopNotifier_PlatformCommands(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		goos     string
		wantCmd  string
		wantArgs int
	}{
		{name: "darwin uses osascript", goos: "darwin", wantCmd: "osascript", wantArgs: 2},
		{name: "linux uses notify-send", goos: "linux", wantCmd: "notify-send", wantArgs: 2},
		{name: "windows uses powershell", goos: "windows", wantCmd: "powershell", wantArgs: 2},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var gotName string
			var gotArgs []string

			d := &DesktopNotifier{
				goos: tt.goos,
				runCmd: func(_ context.Context, name string, args ...string) error {
					gotName = name
					gotArgs = args
					return nil
				},
			}

			detail, err := d.Send(context.Background(), "Parking!", "spot open")
			require.NoError(t, err)
			assert.Equal(t, "Desktop alert shown", detail)
			assert.Equal(t, tt.wantCmd, gotName)
			assert.Len(t, gotArgs, tt.wantArgs)
		})
	}
}

func TestDesktopNotifier_FallsBackToBell(t *testing.T) {
	t.Parallel()

	d := &DesktopNotifier{
		goos: "linux",
		runCmd: func(_ context.Context, _ string, _ ...string) error {
			return errors.New("notify-send: command not found")
		},
	}

	detail, err := d.Send(context.Background(), "Parking!", "spot open")
	require.NoError(t, err, "desktop alerts are best-effort and never fail dispatch")
	assert.Contains(t, detail, "bell")
}

func TestDesktopNotifier_UnsupportedPlatform(t *testing.T) {
	t.Parallel()

	d := &DesktopNotifier{
		goos: "plan9",
		runCmd: func(_ context.Context, _ string, _ ...string) error {
			t.Fatal("no command should run on unsupported platforms")
			return nil
		},
	}

	detail, err := d.Send(context.Background(), "Parking!", "spot open")
	require.NoError(t, err)
	assert.Contains(t, detail, "bell")
}
