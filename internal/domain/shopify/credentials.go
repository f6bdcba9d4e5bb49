package shopify

import (
	"fmt"
	"strings"
)

// DefaultAPIVersion is the Admin API version the queries are written against.
const DefaultAPIVersion = "2024-01"

// Credentials identifies one shop on the Admin API.
type Credentials struct {
	scheme      string
	host        string
	accessToken string
}

// NewCredentials creates a Credentials value object from a store URL and token.
// The URL may be a bare domain ("acme.myshopify.com") or carry a scheme and path.
func NewCredentials(storeURL, accessToken string) (*Credentials, error) {
	storeURL = strings.TrimSpace(storeURL)
	if storeURL == "" {
		return nil, ErrMissingStoreURL
	}
	if strings.TrimSpace(accessToken) == "" {
		return nil, ErrMissingToken
	}

	scheme := "https"
	if i := strings.Index(storeURL, "://"); i >= 0 {
		scheme = strings.ToLower(storeURL[:i])
		storeURL = storeURL[i+3:]
	}
	if i := strings.IndexByte(storeURL, '/'); i >= 0 {
		storeURL = storeURL[:i]
	}
	if storeURL == "" {
		return nil, ErrMissingStoreURL
	}

	return &Credentials{
		scheme:      scheme,
		host:        strings.ToLower(storeURL),
		accessToken: accessToken,
	}, nil
}

// Shop returns the shop host, used as the rate limit key.
func (c *Credentials) Shop() string {
	return c.host
}

// AccessToken returns the Admin API access token.
func (c *Credentials) AccessToken() string {
	return c.accessToken
}

// Endpoint returns the GraphQL endpoint for the given API version.
func (c *Credentials) Endpoint(apiVersion string) string {
	if apiVersion == "" {
		apiVersion = DefaultAPIVersion
	}
	return fmt.Sprintf("%s://%s/admin/api/%s/graphql.json", c.scheme, c.host, apiVersion)
}
