package api

import (
	"context"
	"fmt"
	"net/url"

	"github.com/tvo/signaldesk/internal/model"
)

// signalsResponse is the backend payload for an assigned-signals fetch.
type signalsResponse struct {
	Signals []model.Signal `json:"signals"`
}

// FetchAssignedSignals returns every signal currently assigned to the
// consumer, answered or not. The backend computes the Answered flag per
// consumer.
func (c *Client) FetchAssignedSignals(ctx context.Context, consumerEmail string) ([]model.Signal, error) {
	path := "/api/v1/signals/assigned?consumer=" + url.QueryEscape(consumerEmail)

	var payload signalsResponse
	if err := c.Get(ctx, path, &payload); err != nil {
		return nil, fmt.Errorf("fetching assigned signals: %w", err)
	}
	return payload.Signals, nil
}

// SubmitResponse hands a completed response to the backend. This is the
// submission boundary: auto-submit, skip-with-reason, and real answers
// all pass through here exactly once per resolution.
func (c *Client) SubmitResponse(ctx context.Context, resp model.Response) error {
	path := fmt.Sprintf("/api/v1/signals/%s/responses", url.PathEscape(resp.SignalID))

	if err := c.Post(ctx, path, resp, nil); err != nil {
		return fmt.Errorf("submitting response for %s: %w", resp.SignalID, err)
	}
	return nil
}
