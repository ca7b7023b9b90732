package ports

import (
	"context"

	"github.com/careapi/care-backend/internal/core/domain"
)

// DiscoveryFetcher returns the federated identity provider's discovery
// metadata (issuer and signing keys). Implementations cache the
// document and refresh it on their own schedule.
type DiscoveryFetcher interface {
	Fetch(ctx context.Context) (*domain.DiscoveryDocument, error)
}
