package stagelinesdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal Stageline HTTP API client.
type Client struct {
	BaseURL     string
	BasePath    string
	APIKey      string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL:  baseURL,
		BasePath: "/v0",
		Timeout:  10 * time.Second,
	}
}

// Project represents the API project model (partial).
type Project struct {
	ID            int64   `json:"id"`
	Name          string  `json:"name"`
	Description   string  `json:"description,omitempty"`
	Status        string  `json:"status"`
	Archived      bool    `json:"archived"`
	RealStartDate *string `json:"real_start_date,omitempty"`
	RealEndDate   *string `json:"real_end_date,omitempty"`
}

// Stage is a board column.
type Stage struct {
	ID            int64      `json:"id"`
	ProjectID     int64      `json:"project_id"`
	Name          string     `json:"name"`
	OrdinalNumber int        `json:"ordinal_number"`
	Activities    []Activity `json:"activities,omitempty"`
}

// Activity is a unit of work inside a stage.
type Activity struct {
	ID                int64   `json:"id"`
	StageID           int64   `json:"stage_id"`
	Title             string  `json:"title"`
	Status            string  `json:"status"`
	Priority          string  `json:"priority"`
	ExecutedStartDate *string `json:"executed_start_date,omitempty"`
	ExecutedEndDate   *string `json:"executed_end_date,omitempty"`
}

// Board is the kanban read model of a project.
type Board struct {
	Project Project `json:"project"`
	Stages  []Stage `json:"stages"`
}

// Summary holds the activity tally behind a project's status.
type Summary struct {
	ProjectID int64  `json:"project_id"`
	Status    string `json:"status"`
	Tally     struct {
		Total      int `json:"total"`
		Completed  int `json:"completed"`
		InProgress int `json:"in_progress"`
		Pending    int `json:"pending"`
	} `json:"tally"`
}

// Event represents a log entry.
type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts"`
	Type       string `json:"type"`
	ProjectID  *int64 `json:"project_id,omitempty"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id"`
	ActorID    string `json:"actor_id"`
	Payload    string `json:"payload_json"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error: status=%d code=%s message=%s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// CreateProject creates a project with its default stage.
func (c *Client) CreateProject(ctx context.Context, name, description string) (Project, error) {
	body := map[string]any{
		"name":        name,
		"description": description,
	}
	var resp Project
	err := c.do(ctx, http.MethodPost, "projects", body, &resp)
	return resp, err
}

// GetProject fetches a project by id.
func (c *Client) GetProject(ctx context.Context, id int64) (Project, error) {
	var resp Project
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("projects/%d", id), nil, &resp)
	return resp, err
}

// ListProjects lists projects. archived is "true", "false", "all" or empty.
func (c *Client) ListProjects(ctx context.Context, archived string) ([]Project, error) {
	endpoint := "projects"
	if archived != "" {
		endpoint += "?archived=" + url.QueryEscape(archived)
	}
	var resp []Project
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// CreateStage appends a stage to a project's board.
func (c *Client) CreateStage(ctx context.Context, projectID int64, name string) (Stage, error) {
	var resp Stage
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("projects/%d/stages", projectID), map[string]any{"name": name}, &resp)
	return resp, err
}

// MoveStage swaps a stage with its neighbor. "up" targets ordinal+1, "down" ordinal-1.
func (c *Client) MoveStage(ctx context.Context, stageID int64, direction string) (Stage, error) {
	var resp Stage
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("stages/%d/move", stageID), map[string]any{"direction": direction}, &resp)
	return resp, err
}

// DeleteStage removes a stage and its activities.
func (c *Client) DeleteStage(ctx context.Context, stageID int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("stages/%d", stageID), nil, nil)
}

// CreateActivity creates an activity in a stage.
func (c *Client) CreateActivity(ctx context.Context, stageID int64, title, status string) (Activity, error) {
	body := map[string]any{"title": title}
	if status != "" {
		body["status"] = status
	}
	var resp Activity
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("stages/%d/activities", stageID), body, &resp)
	return resp, err
}

// SetActivityStatus changes an activity status; the project status is re-derived server side.
func (c *Client) SetActivityStatus(ctx context.Context, activityID int64, status string) (Activity, error) {
	var resp Activity
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("activities/%d/status", activityID), map[string]any{"status": status}, &resp)
	return resp, err
}

// Board returns the stages of a project in order, with their activities.
func (c *Client) Board(ctx context.Context, projectID int64) (Board, error) {
	var resp Board
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("projects/%d/board", projectID), nil, &resp)
	return resp, err
}

// Summary returns the activity tally of a project.
func (c *Client) Summary(ctx context.Context, projectID int64) (Summary, error) {
	var resp Summary
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("projects/%d/summary", projectID), nil, &resp)
	return resp, err
}

// Events returns recent events, newest first. projectID 0 lists all projects.
func (c *Client) Events(ctx context.Context, projectID int64, limit int) ([]Event, error) {
	endpoint := "events"
	if projectID > 0 {
		endpoint = fmt.Sprintf("projects/%d/events", projectID)
	}
	if limit > 0 {
		endpoint = fmt.Sprintf("%s?limit=%d", endpoint, limit)
	}
	var resp []Event
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	switch {
	case c.BearerToken != "":
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	case c.APIKey != "":
		req.Header.Set("X-Api-Key", c.APIKey)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return decodeAPIError(resp)
	}
	if out != nil && resp.StatusCode != http.StatusNoContent {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	b, _ := io.ReadAll(resp.Body)
	apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	var env struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(b, &env) == nil {
		apiErr.Code = env.Error.Code
		apiErr.Message = env.Error.Message
	}
	return apiErr
}

func (c *Client) base() string {
	base := strings.TrimRight(c.BaseURL, "/")
	if p := strings.Trim(c.BasePath, "/"); p != "" {
		base += "/" + p
	}
	return base
}
