// Package oidc fetches and caches the federated provider's OpenID
// discovery document and its signing keys.
package oidc

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/careapi/care-backend/internal/api/metrics"
	"github.com/careapi/care-backend/internal/core/domain"
)

const (
	defaultTimeout = 10 * time.Second

	// defaultRefreshInterval matches the refresh cadence of the
	// provider-side key rollover guidance: keys rotate rarely, and a
	// stale document keeps working until the next successful refresh.
	defaultRefreshInterval = 12 * time.Hour
)

// Fetcher lazily fetches the discovery document and serves it from an
// internally-synchronized cache until the refresh interval elapses.
// On refresh failure the last good document is served instead, so a
// transient metadata outage does not invalidate every federated token.
type Fetcher struct {
	configURL       string
	refreshInterval time.Duration
	http            *http.Client

	mu        sync.RWMutex
	doc       *domain.DiscoveryDocument
	fetchedAt time.Time
}

// NewFetcher builds a Fetcher for an Azure B2C style well-known
// configuration endpoint.
func NewFetcher(hostName, tenantName, policyName string) *Fetcher {
	url := fmt.Sprintf("https://%s/%s/v2.0/.well-known/openid-configuration?p=%s",
		hostName, tenantName, policyName)
	return NewFetcherURL(url)
}

// NewFetcherURL builds a Fetcher for an explicit configuration URL.
func NewFetcherURL(configURL string) *Fetcher {
	return &Fetcher{
		configURL:       configURL,
		refreshInterval: defaultRefreshInterval,
		http:            &http.Client{Timeout: defaultTimeout},
	}
}

// Fetch returns the cached document when fresh, refreshing it
// otherwise. Concurrent callers during a refresh each attempt the
// fetch; the last writer wins, which is harmless because the document
// is immutable once fetched.
func (f *Fetcher) Fetch(ctx context.Context) (*domain.DiscoveryDocument, error) {
	f.mu.RLock()
	doc, fetchedAt := f.doc, f.fetchedAt
	f.mu.RUnlock()

	if doc != nil && time.Since(fetchedAt) < f.refreshInterval {
		return doc, nil
	}

	fresh, err := f.refresh(ctx)
	if err != nil {
		metrics.DiscoveryRefreshTotal.WithLabelValues("error").Inc()
		if doc != nil {
			return doc, nil
		}
		return nil, err
	}
	metrics.DiscoveryRefreshTotal.WithLabelValues("ok").Inc()

	f.mu.Lock()
	f.doc = fresh
	f.fetchedAt = time.Now()
	f.mu.Unlock()

	return fresh, nil
}

type configurationResponse struct {
	Issuer  string `json:"issuer"`
	JWKSURI string `json:"jwks_uri"`
}

type jwk struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	N   string `json:"n"`
	E   string `json:"e"`
}

type jwksResponse struct {
	Keys []jwk `json:"keys"`
}

func (f *Fetcher) refresh(ctx context.Context) (*domain.DiscoveryDocument, error) {
	var cfg configurationResponse
	if err := f.getJSON(ctx, f.configURL, &cfg); err != nil {
		return nil, fmt.Errorf("discovery document: %w", err)
	}
	if cfg.JWKSURI == "" {
		return nil, fmt.Errorf("discovery document: missing jwks_uri")
	}

	var jwks jwksResponse
	if err := f.getJSON(ctx, cfg.JWKSURI, &jwks); err != nil {
		return nil, fmt.Errorf("jwks: %w", err)
	}

	doc := &domain.DiscoveryDocument{Issuer: cfg.Issuer}
	for _, key := range jwks.Keys {
		if key.Kty != "RSA" {
			continue
		}
		pub, err := rsaKeyFromJWK(key)
		if err != nil {
			return nil, fmt.Errorf("jwks key %q: %w", key.Kid, err)
		}
		doc.Keys = append(doc.Keys, domain.SigningKey{KeyID: key.Kid, Key: pub})
	}
	if len(doc.Keys) == 0 {
		return nil, fmt.Errorf("jwks: no usable RSA keys")
	}
	return doc, nil
}

func (f *Fetcher) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := f.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func rsaKeyFromJWK(key jwk) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(key.N)
	if err != nil {
		return nil, fmt.Errorf("modulus: %w", err)
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(key.E)
	if err != nil {
		return nil, fmt.Errorf("exponent: %w", err)
	}
	e := 0
	for _, b := range eBytes {
		e = e<<8 | int(b)
	}
	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nBytes),
		E: e,
	}, nil
}
