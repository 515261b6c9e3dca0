package out

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"nightwatch/internal/modules/tracker/domain"
	trackerout "nightwatch/internal/modules/tracker/port/out"
	apperrors "nightwatch/internal/platform/errors"
)

// permissionHints are fragments OS capture tools print when screen recording
// has not been granted.
var permissionHints = []string{"access to the feature", "permission", "not authorized"}

// CommandCapturer runs an external tool that writes one image to stdout,
// e.g. `screencapture -x -t png /dev/stdout` or `grim -`.
type CommandCapturer struct {
	argv []string
	mime string
}

func NewCommandCapturer(argv []string, mime string) trackerout.ScreenCapturer {
	return &CommandCapturer{argv: argv, mime: mime}
}

func (c *CommandCapturer) Capture(ctx context.Context) (domain.Screenshot, error) {
	if len(c.argv) == 0 {
		return domain.Screenshot{}, fmt.Errorf("capture command: %w", apperrors.ErrNotConfigured)
	}
	cmd := exec.CommandContext(ctx, c.argv[0], c.argv[1:]...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if isPermissionMessage(msg) || isPermissionMessage(err.Error()) {
			return domain.Screenshot{}, fmt.Errorf("%w: %s", apperrors.ErrPermissionDenied, firstNonEmpty(msg, err.Error()))
		}
		if msg != "" {
			return domain.Screenshot{}, fmt.Errorf("capture command: %w: %s", err, msg)
		}
		return domain.Screenshot{}, fmt.Errorf("capture command: %w", err)
	}
	return domain.Screenshot{Data: stdout.Bytes(), MIME: c.mime}, nil
}

func isPermissionMessage(msg string) bool {
	lower := strings.ToLower(msg)
	for _, hint := range permissionHints {
		if strings.Contains(lower, hint) {
			return true
		}
	}
	return false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
