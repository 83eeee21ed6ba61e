package api

import (
	"context"
	"fmt"
	"net/url"
)

// DailyTasks retrieves today's task batch and the claimed-at marker.
func (c *Client) DailyTasks(ctx context.Context) (*DailyTasks, error) {
	var out DailyTasks
	if err := c.get(ctx, "/api/v1/tasks/daily", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UploadTicket requests an upload destination for the given task type.
func (c *Client) UploadTicket(ctx context.Context, taskType string) (*UploadTicket, error) {
	var out UploadTicket
	req := struct {
		TaskType string `json:"task_type"`
	}{TaskType: taskType}
	if err := c.post(ctx, "/api/v1/tasks/upload-url", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SubmitTask registers an uploaded media and its answers against a task.
func (c *Client) SubmitTask(ctx context.Context, req SubmitTaskRequest) error {
	path := fmt.Sprintf("/api/v1/tasks/%s/submit", url.PathEscape(req.TaskID))
	return c.post(ctx, path, req, nil)
}

// ClaimableAmount returns the unclaimed total for one reward category.
func (c *Client) ClaimableAmount(ctx context.Context, category RewardCategory) (float64, error) {
	var out struct {
		Amount float64 `json:"amount"`
	}
	path := "/api/v1/rewards/claimable?category=" + url.QueryEscape(string(category))
	if err := c.get(ctx, path, &out); err != nil {
		return 0, err
	}
	return out.Amount, nil
}

// RewardRecords lists reward aggregates for one category, newest first.
func (c *Client) RewardRecords(ctx context.Context, category RewardCategory) ([]RewardRecord, error) {
	var out struct {
		Records []RewardRecord `json:"records"`
	}
	path := "/api/v1/rewards/records?category=" + url.QueryEscape(string(category))
	if err := c.get(ctx, path, &out); err != nil {
		return nil, err
	}
	return out.Records, nil
}
