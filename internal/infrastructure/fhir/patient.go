// Package fhir is the HTTP client for the clinical-data server,
// consumed only for patient-identifier resolution. FHIR semantics are
// the server's business; this client reads the bare minimum out of the
// search bundle.
package fhir

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/careapi/care-backend/internal/core/domain"
)

const defaultTimeout = 10 * time.Second

type Client struct {
	baseURL          string
	identifierSystem string
	http             *http.Client
}

func NewClient(baseURL, identifierSystem string) *Client {
	return &Client{
		baseURL:          baseURL,
		identifierSystem: identifierSystem,
		http:             &http.Client{Timeout: defaultTimeout},
	}
}

type bundleResource struct {
	ID string `json:"id"`
}

type bundleEntry struct {
	Resource bundleResource `json:"resource"`
}

type searchBundle struct {
	Entry []bundleEntry `json:"entry"`
}

// ResolveByIdentifier searches patients by business identifier,
// re-presenting bearerToken as the credential. An empty slice means a
// successful search with zero matches.
func (c *Client) ResolveByIdentifier(ctx context.Context, identifier, bearerToken string) ([]domain.PatientRecord, error) {
	endpoint := fmt.Sprintf("%s/Patient?identifier=%s", c.baseURL,
		url.QueryEscape(c.identifierSystem+"|"+identifier))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("patient search request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+bearerToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("patient search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("patient search: unexpected status %d", resp.StatusCode)
	}

	var bundle searchBundle
	if err := json.NewDecoder(resp.Body).Decode(&bundle); err != nil {
		return nil, fmt.Errorf("patient search decode: %w", err)
	}

	records := make([]domain.PatientRecord, 0, len(bundle.Entry))
	for _, entry := range bundle.Entry {
		records = append(records, domain.PatientRecord{ID: entry.Resource.ID})
	}
	return records, nil
}
