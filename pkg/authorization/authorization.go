// Package authorization provides the workspace access-check contract
// consumed from the identity provider. The engine never stores identities;
// it only asks whether a user may act on a workspace.
package authorization

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultWorkspaceID is the distinguished workspace that unmapped users may
// still act on. Toggle falls back to it when the identity provider has no
// workspace mapping for the caller.
const DefaultWorkspaceID = "default"

// Access is the identity provider's answer for one (user, workspace) pair.
type Access struct {
	CanRead   bool `json:"can_read"`
	CanWrite  bool `json:"can_write"`
	CanManage bool `json:"can_manage"`
}

// Authorizer answers workspace access checks.
type Authorizer interface {
	HasWorkspaceAccess(ctx context.Context, userID, workspaceID string) (Access, error)
}

// StaticAuthorizer resolves access from a fixed membership map. Used in
// tests and single-tenant deployments without an identity provider.
type StaticAuthorizer struct {
	// Memberships maps userID -> set of workspace IDs with full access.
	Memberships map[string][]string

	// AllowAll grants every user full access to every workspace.
	AllowAll bool
}

// HasWorkspaceAccess resolves access from the static membership map.
// Everyone gets full access to the default workspace.
func (a *StaticAuthorizer) HasWorkspaceAccess(_ context.Context, userID, workspaceID string) (Access, error) {
	if a.AllowAll || workspaceID == DefaultWorkspaceID {
		return Access{CanRead: true, CanWrite: true, CanManage: true}, nil
	}

	for _, ws := range a.Memberships[userID] {
		if ws == workspaceID {
			return Access{CanRead: true, CanWrite: true, CanManage: true}, nil
		}
	}

	return Access{}, nil
}

// HTTPAuthorizer queries the identity provider's access endpoint:
// GET {base}/access?user_id=...&workspace_id=... -> Access JSON.
type HTTPAuthorizer struct {
	baseURL string
	client  *http.Client
}

// NewHTTPAuthorizer creates an identity provider client with a bounded
// per-call timeout.
func NewHTTPAuthorizer(baseURL string, timeout time.Duration) *HTTPAuthorizer {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &HTTPAuthorizer{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// HasWorkspaceAccess asks the identity provider for the caller's access.
func (a *HTTPAuthorizer) HasWorkspaceAccess(ctx context.Context, userID, workspaceID string) (Access, error) {
	query := url.Values{}
	query.Set("user_id", userID)
	query.Set("workspace_id", workspaceID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/access?"+query.Encode(), nil)
	if err != nil {
		return Access{}, fmt.Errorf("failed to create access request: %w", err)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return Access{}, fmt.Errorf("access check failed: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Access{}, fmt.Errorf("failed to read access response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return Access{}, fmt.Errorf("access check returned HTTP %d", resp.StatusCode)
	}

	var access Access

	err = json.Unmarshal(body, &access)
	if err != nil {
		return Access{}, fmt.Errorf("failed to decode access response: %w", err)
	}

	return access, nil
}
