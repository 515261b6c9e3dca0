package out

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"nightwatch/internal/modules/tracker/domain"
	trackerout "nightwatch/internal/modules/tracker/port/out"
	apperrors "nightwatch/internal/platform/errors"
)

// FileCapturer re-reads an image that some other tool keeps refreshing.
type FileCapturer struct {
	path string
	mime string
}

func NewFileCapturer(path, mime string) trackerout.ScreenCapturer {
	return &FileCapturer{path: path, mime: mime}
}

func (c *FileCapturer) Capture(ctx context.Context) (domain.Screenshot, error) {
	if err := ctx.Err(); err != nil {
		return domain.Screenshot{}, err
	}
	raw, err := os.ReadFile(c.path)
	switch {
	case errors.Is(err, fs.ErrPermission):
		return domain.Screenshot{}, fmt.Errorf("%w: %v", apperrors.ErrPermissionDenied, err)
	case err != nil:
		return domain.Screenshot{}, fmt.Errorf("read capture file: %w", err)
	}
	return domain.Screenshot{Data: raw, MIME: c.mime}, nil
}
