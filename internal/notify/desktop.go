package notify

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"time"
)

const desktopTimeout = 5 * time.Second

// DesktopNotifier shows a best-effort local desktop alert. It shells out to
// the platform's notification tool and falls back to a terminal bell when
// that is missing; it never fails the dispatch.
type DesktopNotifier struct {
	goos   string
	runCmd func(ctx context.Context, name string, args ...string) error
}

// NewDesktopNotifier creates a desktop notifier for the current platform.
func NewDesktopNotifier() *DesktopNotifier {
	return &DesktopNotifier{
		goos: runtime.GOOS,
		runCmd: func(ctx context.Context, name string, args ...string) error {
			return exec.CommandContext(ctx, name, args...).Run()
		},
	}
}

// Kind returns ChannelDesktop.
func (d *DesktopNotifier) Kind() Channel {
	return ChannelDesktop
}

// Send shows the alert. The returned error is always nil; the outcome detail
// says whether the platform tool or the bell fallback was used.
func (d *DesktopNotifier) Send(ctx context.Context, title, message string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, desktopTimeout)
	defer cancel()

	if err := d.show(ctx, title, message); err != nil {
		// No notification tool available; at least ring the bell.
		fmt.Fprint(os.Stdout, "\a")
		return "Alert bell (no desktop notification tool)", nil
	}
	return "Desktop alert shown", nil
}

func (d *DesktopNotifier) show(ctx context.Context, title, message string) error {
	switch d.goos {
	case "darwin":
		script := fmt.Sprintf(
			"display notification %q with title %q sound name \"Glass\"",
			message, title,
		)
		return d.runCmd(ctx, "osascript", "-e", script)
	case "linux":
		return d.runCmd(ctx, "notify-send", title, message)
	case "windows":
		ps := fmt.Sprintf(
			`[System.Reflection.Assembly]::LoadWithPartialName("System.Windows.Forms") | Out-Null;`+
				`$b = New-Object System.Windows.Forms.NotifyIcon;`+
				`$b.Icon = [System.Drawing.SystemIcons]::Information;`+
				`$b.BalloonTipTitle = %q;`+
				`$b.BalloonTipText = %q;`+
				`$b.Visible = $true;`+
				`$b.ShowBalloonTip(10000)`,
			title, message,
		)
		return d.runCmd(ctx, "powershell", "-Command", ps)
	default:
		return fmt.Errorf("no desktop notification support on %s", d.goos)
	}
}
