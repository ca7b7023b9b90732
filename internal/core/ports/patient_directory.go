package ports

import (
	"context"

	"github.com/careapi/care-backend/internal/core/domain"
)

// PatientDirectory resolves patient identifiers against the clinical
// data server. The bearer token is re-presented as the credential for
// the lookup.
type PatientDirectory interface {
	ResolveByIdentifier(ctx context.Context, identifier, bearerToken string) ([]domain.PatientRecord, error)
}
