// Package automation provides the client for the external workflow
// automation engine. The client is stateless and performs no retries;
// retry policy belongs to callers.
package automation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultTimeout = 10 * time.Second

// WorkflowState is the engine's authoritative report for one workflow.
type WorkflowState struct {
	ID     string `json:"id"`
	Active bool   `json:"active"`
}

// Client is the narrow contract against the automation engine. SetActive is
// an assertion of desired state, not a delta, so repeated calls with the
// same argument are safe.
type Client interface {
	GetStatus(ctx context.Context, workflowID string) (*WorkflowState, error)
	SetActive(ctx context.Context, workflowID string, active bool) (*WorkflowState, error)

	// Clone allocates a new workflow in the engine from a template.
	// Returns the new workflow's ID.
	Clone(ctx context.Context, templateID string) (string, error)

	// RegisterCallback attaches a status-push callback URL to a workflow.
	RegisterCallback(ctx context.Context, workflowID, callbackURL string) error
}

// ErrWorkflowNotFound marks a RemoteError caused by a workflow that no
// longer exists on the engine side.
var ErrWorkflowNotFound = errors.New("remote workflow not found")

// RemoteError is any failure of an engine call: transport errors, timeouts
// and non-2xx responses all surface as RemoteError.
type RemoteError struct {
	Op         string
	WorkflowID string
	StatusCode int // 0 for transport-level failures
	Err        error
}

func (e *RemoteError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("automation engine %s failed for workflow %s: HTTP %d: %v", e.Op, e.WorkflowID, e.StatusCode, e.Err)
	}

	return fmt.Sprintf("automation engine %s failed for workflow %s: %v", e.Op, e.WorkflowID, e.Err)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// IsNotFound checks whether an engine error means the workflow is gone.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound)
}

// HTTPClient talks to the engine's REST API. Every call carries a bounded
// timeout; a timeout is indistinguishable from any other remote failure.
type HTTPClient struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewHTTPClient creates an engine client. A zero timeout selects the
// default.
func NewHTTPClient(baseURL, token string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: timeout},
	}
}

// GetStatus fetches the workflow's current state.
func (c *HTTPClient) GetStatus(ctx context.Context, workflowID string) (*WorkflowState, error) {
	return c.workflowCall(ctx, "GetStatus", http.MethodGet, "/workflows/"+workflowID, workflowID, nil)
}

// SetActive asserts the workflow's desired active state and returns the
// state the engine reports back.
func (c *HTTPClient) SetActive(ctx context.Context, workflowID string, active bool) (*WorkflowState, error) {
	payload := map[string]bool{"active": active}

	return c.workflowCall(ctx, "SetActive", http.MethodPatch, "/workflows/"+workflowID, workflowID, payload)
}

// Clone allocates a new workflow from a template and returns its ID.
func (c *HTTPClient) Clone(ctx context.Context, templateID string) (string, error) {
	payload := map[string]string{"template_id": templateID}

	body, err := c.do(ctx, "Clone", http.MethodPost, "/workflows", templateID, payload)
	if err != nil {
		return "", err
	}

	var state WorkflowState

	err = json.Unmarshal(body, &state)
	if err != nil {
		return "", &RemoteError{Op: "Clone", WorkflowID: templateID, Err: fmt.Errorf("failed to decode response: %w", err)}
	}

	if state.ID == "" {
		return "", &RemoteError{Op: "Clone", WorkflowID: templateID, Err: errors.New("engine returned no workflow id")}
	}

	return state.ID, nil
}

// RegisterCallback attaches a status-push callback URL to the workflow.
func (c *HTTPClient) RegisterCallback(ctx context.Context, workflowID, callbackURL string) error {
	payload := map[string]string{"url": callbackURL}

	_, err := c.do(ctx, "RegisterCallback", http.MethodPost, "/workflows/"+workflowID+"/callbacks", workflowID, payload)

	return err
}

func (c *HTTPClient) workflowCall(ctx context.Context, op, method, path, workflowID string, payload any) (*WorkflowState, error) {
	body, err := c.do(ctx, op, method, path, workflowID, payload)
	if err != nil {
		return nil, err
	}

	var state WorkflowState

	err = json.Unmarshal(body, &state)
	if err != nil {
		return nil, &RemoteError{Op: op, WorkflowID: workflowID, Err: fmt.Errorf("failed to decode response: %w", err)}
	}

	if state.ID == "" {
		state.ID = workflowID
	}

	return &state, nil
}

func (c *HTTPClient) do(ctx context.Context, op, method, path, workflowID string, payload any) ([]byte, error) {
	var reqBody io.Reader

	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, &RemoteError{Op: op, WorkflowID: workflowID, Err: fmt.Errorf("failed to encode request: %w", err)}
		}

		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, &RemoteError{Op: op, WorkflowID: workflowID, Err: fmt.Errorf("failed to create request: %w", err)}
	}

	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &RemoteError{Op: op, WorkflowID: workflowID, Err: err}
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &RemoteError{Op: op, WorkflowID: workflowID, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, &RemoteError{Op: op, WorkflowID: workflowID, StatusCode: resp.StatusCode, Err: ErrWorkflowNotFound}
	}

	if resp.StatusCode >= 400 {
		return nil, &RemoteError{Op: op, WorkflowID: workflowID, StatusCode: resp.StatusCode, Err: errors.New(strings.TrimSpace(string(respBody)))}
	}

	return respBody, nil
}
