// Package file provides file-based persistence for campaigns and
// provisioning steps. It backs local development and tests; the conditional
// write protocol is enforced under an in-process lock.
package file

import (
	"context"
	"os"
	"strings"
	"sync"

	"github.com/nishchith-m1015/campaign-sync/pkg/persistence"
)

// Persistence implements the persistence.Persistence interface using the
// file system. One JSON document per campaign and per provisioning attempt.
type Persistence struct {
	root             string
	mu               sync.Mutex
	campaignRepo     *CampaignRepository
	provisioningRepo *ProvisioningRepository
}

// NewPersistence creates a new instance rooted at the given directory.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	p := &Persistence{root: cleanRoot}
	p.campaignRepo = &CampaignRepository{persistence: p}
	p.provisioningRepo = &ProvisioningRepository{persistence: p}

	return p
}

// Close performs any necessary cleanup. For file-based persistence, there is nothing to clean up.
func (p *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck verifies the root directory exists.
func (p *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(p.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

// CampaignRepository returns the campaign repository implementation.
func (p *Persistence) CampaignRepository() persistence.CampaignRepository {
	return p.campaignRepo
}

// ProvisioningRepository returns the provisioning repository implementation.
func (p *Persistence) ProvisioningRepository() persistence.ProvisioningRepository {
	return p.provisioningRepo
}
