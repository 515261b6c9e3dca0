package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"nightwatch/internal/modules/tracker/domain"
	trackerout "nightwatch/internal/modules/tracker/port/out"
	apperrors "nightwatch/internal/platform/errors"
	"nightwatch/internal/platform/logging"
)

const GatewayTimeout = 5 * time.Second

// Gateway turns one screenshot into one label. Failures are reported as
// ErrPermissionDenied or ErrClassificationFailed; a label outside the closed
// set is not a failure and comes back as LabelUnclassified.
type Gateway struct {
	capturer   trackerout.ScreenCapturer
	classifier trackerout.PhaseClassifier
	timeout    time.Duration
	log        *logrus.Entry
}

func NewGateway(capturer trackerout.ScreenCapturer, classifier trackerout.PhaseClassifier, timeout time.Duration, log *logrus.Entry) *Gateway {
	if timeout <= 0 {
		timeout = GatewayTimeout
	}
	if log == nil {
		log = logrus.NewEntry(logging.Discard())
	}
	return &Gateway{capturer: capturer, classifier: classifier, timeout: timeout, log: log}
}

type classifyResult struct {
	label domain.Label
	err   error
}

// Classify captures and classifies within the gateway timeout. The timeout
// holds even when an adapter ignores ctx; its goroutine is abandoned and its
// late result dropped.
func (g *Gateway) Classify(ctx context.Context) (domain.Label, error) {
	if g.capturer == nil || g.classifier == nil {
		return domain.LabelUnclassified, fmt.Errorf("%w: classifier gateway: %w", apperrors.ErrClassificationFailed, apperrors.ErrNotConfigured)
	}
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	done := make(chan classifyResult, 1)
	go func() {
		label, err := g.classify(ctx)
		done <- classifyResult{label: label, err: err}
	}()

	select {
	case res := <-done:
		return res.label, res.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			g.log.WithField("timeout", g.timeout).Warn("classification timed out")
			return domain.LabelUnclassified, fmt.Errorf("%w after %s", apperrors.ErrClassificationTimeout, g.timeout)
		}
		return domain.LabelUnclassified, fmt.Errorf("%w: %w", apperrors.ErrClassificationFailed, ctx.Err())
	}
}

func (g *Gateway) classify(ctx context.Context) (domain.Label, error) {
	shot, err := g.capturer.Capture(ctx)
	if err != nil {
		if errors.Is(err, apperrors.ErrPermissionDenied) {
			return domain.LabelUnclassified, err
		}
		return domain.LabelUnclassified, fmt.Errorf("%w: capture: %w", apperrors.ErrClassificationFailed, err)
	}
	if shot.Empty() {
		return domain.LabelUnclassified, fmt.Errorf("%w: capture returned no image", apperrors.ErrClassificationFailed)
	}
	raw, err := g.classifier.Classify(ctx, shot)
	if err != nil {
		if errors.Is(err, apperrors.ErrClassificationFailed) {
			return domain.LabelUnclassified, err
		}
		return domain.LabelUnclassified, fmt.Errorf("%w: %w", apperrors.ErrClassificationFailed, err)
	}
	label := domain.ParseLabel(raw)
	if label == domain.LabelUnclassified {
		g.log.WithField("raw", raw).Debug("classifier returned unclassified label")
	}
	return label, nil
}
