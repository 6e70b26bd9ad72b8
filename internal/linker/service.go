// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package linker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/pdiddy/link-engine/internal/httputil"
)

const (
	findRefsPath = "/api/find-refs"
	asyncPath    = "/api/async/"

	stateFailure = "FAILURE"
	statePending = "PENDING"
)

// ErrTaskFailed is returned when the service reports a job as failed.
var ErrTaskFailed = errors.New("reference task failed")

// Service is the remote reference-finding service. Submit starts an
// asynchronous job over one chunk of text; Fetch reports its state.
type Service interface {
	Submit(ctx context.Context, text, title string) (string, error)
	Fetch(ctx context.Context, taskID string) (Job, error)
}

// Job is the state of a submitted task.
type Job struct {
	State   string
	Ready   bool
	Results []Result
	RefData map[string]RefData
}

// Done reports whether the job finished and its results can be read.
func (j Job) Done() bool {
	return j.Ready && j.State != statePending
}

// Failed reports whether the service gave up on the job.
func (j Job) Failed() bool {
	return j.State == stateFailure
}

// Result is one span the service flagged. Refs is nil when the span could
// not be resolved to any reference.
type Result struct {
	Refs       []string `json:"refs"`
	StartChar  int      `json:"startChar"`
	EndChar    int      `json:"endChar"`
	LinkFailed bool     `json:"linkFailed"`
	Text       string   `json:"text"`
}

// RefData describes a reference the service resolved.
type RefData struct {
	HeRef           string `json:"heRef"`
	URL             string `json:"url"`
	PrimaryCategory string `json:"primaryCategory"`
}

// HTTPService talks to the service over HTTP. Submit retries HTTP 429
// responses with backoff. APIKey, when set, is sent as a bearer token.
type HTTPService struct {
	Client    *http.Client
	BaseURL   string
	UserAgent string
	APIKey    string
	Sleeper   httputil.Sleeper
}

type submitRequest struct {
	Text submitText `json:"text"`
}

type submitText struct {
	Body  string `json:"body"`
	Title string `json:"title"`
}

type submitResponse struct {
	TaskID string `json:"task_id"`
}

type asyncResponse struct {
	State  string `json:"state"`
	Ready  bool   `json:"ready"`
	Result struct {
		Body struct {
			Results []Result           `json:"results"`
			RefData map[string]RefData `json:"refData"`
		} `json:"body"`
	} `json:"result"`
}

// Submit posts a chunk and returns the task id.
func (s *HTTPService) Submit(ctx context.Context, text, title string) (string, error) {
	payload, err := json.Marshal(submitRequest{Text: submitText{Body: text, Title: title}})
	if err != nil {
		return "", fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint(findRefsPath), bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	s.setHeaders(req)

	resp, err := httputil.DoWithRetry(ctx, s.Client, req, 0, s.Sleeper)
	if err != nil {
		return "", fmt.Errorf("find-refs request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return "", fmt.Errorf("find-refs returned HTTP %d", resp.StatusCode)
	}

	var sr submitResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return "", fmt.Errorf("parsing find-refs response: %w", err)
	}
	if sr.TaskID == "" {
		return "", fmt.Errorf("find-refs response has no task_id")
	}
	return sr.TaskID, nil
}

// Fetch reads the state of a task.
func (s *HTTPService) Fetch(ctx context.Context, taskID string) (Job, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint(asyncPath+taskID), nil)
	if err != nil {
		return Job{}, fmt.Errorf("creating request: %w", err)
	}
	s.setHeaders(req)

	resp, err := httputil.DoWithRetry(ctx, s.Client, req, 0, s.Sleeper)
	if err != nil {
		return Job{}, fmt.Errorf("async request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Job{}, fmt.Errorf("async %s returned HTTP %d", taskID, resp.StatusCode)
	}

	var ar asyncResponse
	if err := json.NewDecoder(resp.Body).Decode(&ar); err != nil {
		return Job{}, fmt.Errorf("parsing async response: %w", err)
	}
	return Job{
		State:   ar.State,
		Ready:   ar.Ready,
		Results: ar.Result.Body.Results,
		RefData: ar.Result.Body.RefData,
	}, nil
}

func (s *HTTPService) endpoint(path string) string {
	return strings.TrimRight(s.BaseURL, "/") + path
}

func (s *HTTPService) setHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	if s.UserAgent != "" {
		req.Header.Set("User-Agent", s.UserAgent)
	}
	if s.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.APIKey)
	}
}
