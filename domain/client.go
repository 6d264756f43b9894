package domain

import "time"

// ClientType represents the type of OAuth2 client.
type ClientType string

const (
	// ClientTypePrivate clients can securely store a pre-shared secret.
	ClientTypePrivate ClientType = "private"
	// ClientTypePublic clients cannot (SPAs, mobile apps) and must use PKCE.
	ClientTypePublic ClientType = "public"
)

// Client represents a registered OAuth2 client application.
type Client struct {
	ID          string     `bson:"client_id"`
	Name        string     `bson:"client_name"`
	RedirectURI string     `bson:"redirect_uri"`
	Type        ClientType `bson:"client_type"`
	Scopes      []string   `bson:"scopes"`

	// SecretHash is a bcrypt hash of the client secret, present only for
	// private clients.
	SecretHash string `bson:"secret_hash,omitempty"`

	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at,omitempty"`
}

// RequiresPKCE reports whether the client must supply a PKCE challenge at
// authorize time. Public clients without a secret have nothing else binding
// the code to them.
func (c *Client) RequiresPKCE() bool {
	return c.Type == ClientTypePublic && c.SecretHash == ""
}

// AllowsScope reports whether every space-separated scope in requested is
// contained in the client's registered scopes. An empty request is allowed;
// the caller substitutes the registered scopes.
func (c *Client) AllowsScope(requested []string) bool {
	for _, req := range requested {
		found := false
		for _, allowed := range c.Scopes {
			if req == allowed {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
