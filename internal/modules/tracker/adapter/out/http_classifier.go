package out

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"nightwatch/internal/modules/tracker/domain"
	trackerout "nightwatch/internal/modules/tracker/port/out"
	apperrors "nightwatch/internal/platform/errors"
)

type flowRequest struct {
	Data flowInput `json:"data"`
}

type flowInput struct {
	ScreenImage string `json:"screenImage"`
}

type flowResponse struct {
	Result struct {
		GameState string `json:"gameState"`
	} `json:"result"`
}

type flowError struct {
	Error struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}

// HTTPClassifier posts the screenshot to a hosted vision flow. The request
// body is {"data":{"screenImage":"data:..."}} and the answer is read from
// {"result":{"gameState":"DAY_I"}}.
type HTTPClassifier struct {
	client   *resty.Client
	endpoint string
}

func NewHTTPClassifier(endpoint, apiKey string, timeout time.Duration) trackerout.PhaseClassifier {
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if apiKey != "" {
		client.SetAuthToken(apiKey)
	}
	return &HTTPClassifier{client: client, endpoint: endpoint}
}

func (c *HTTPClassifier) Classify(ctx context.Context, shot domain.Screenshot) (string, error) {
	var (
		result flowResponse
		failed flowError
	)
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(flowRequest{Data: flowInput{ScreenImage: shot.DataURI()}}).
		SetResult(&result).
		SetError(&failed).
		Post(c.endpoint)
	if err != nil {
		return "", fmt.Errorf("post classify flow: %w", err)
	}
	if resp.IsError() {
		msg := failed.Error.Message
		if msg == "" {
			msg = strings.TrimSpace(resp.String())
		}
		if status := resp.StatusCode(); status == 401 || status == 403 {
			return "", fmt.Errorf("%w: classify flow returned %d: %s", apperrors.ErrPermissionDenied, status, msg)
		}
		return "", fmt.Errorf("classify flow returned %d: %s", resp.StatusCode(), msg)
	}
	return result.Result.GameState, nil
}
