package ports

import "context"

// Whitelist is the externally maintained allow-list of user ids
// permitted to obtain an access token via the hashlink flow.
type Whitelist interface {
	GetWhitelist(ctx context.Context) ([]string, error)
}
