// Package mocks provides testify mock implementations of the external
// collaborator interfaces.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/nishchith-m1015/campaign-sync/pkg/automation"
)

// MockAutomationClient is a mock implementation of automation.Client.
type MockAutomationClient struct {
	mock.Mock
}

func (m *MockAutomationClient) GetStatus(ctx context.Context, workflowID string) (*automation.WorkflowState, error) {
	args := m.Called(ctx, workflowID)

	state, _ := args.Get(0).(*automation.WorkflowState)

	return state, args.Error(1)
}

func (m *MockAutomationClient) SetActive(ctx context.Context, workflowID string, active bool) (*automation.WorkflowState, error) {
	args := m.Called(ctx, workflowID, active)

	state, _ := args.Get(0).(*automation.WorkflowState)

	return state, args.Error(1)
}

func (m *MockAutomationClient) Clone(ctx context.Context, templateID string) (string, error) {
	args := m.Called(ctx, templateID)

	return args.String(0), args.Error(1)
}

func (m *MockAutomationClient) RegisterCallback(ctx context.Context, workflowID, callbackURL string) error {
	args := m.Called(ctx, workflowID, callbackURL)

	return args.Error(0)
}
