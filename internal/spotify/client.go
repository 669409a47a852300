// Package spotify wraps the Spotify Web API for catalog ingestion. The
// ingest tool runs server-to-server, so it authenticates with the client
// credentials flow and never touches user data.
package spotify

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2/clientcredentials"
)

// ErrMissingCredentials is returned when the client id or secret is empty.
var ErrMissingCredentials = errors.New("missing spotify client credentials")

// Client wraps the Spotify API client with catalog ingestion helpers.
type Client struct {
	api *spotify.Client
}

// New authenticates with the client credentials flow.
func New(ctx context.Context, clientID, clientSecret string) (*Client, error) {
	if clientID == "" || clientSecret == "" {
		return nil, ErrMissingCredentials
	}

	cfg := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     spotifyauth.TokenURL,
	}
	token, err := cfg.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("requesting client credentials token: %w", err)
	}

	httpClient := spotifyauth.New().Client(ctx, token)
	return &Client{api: spotify.New(httpClient, spotify.WithRetry(true))}, nil
}

// NewWithHTTPClient builds a Client on a caller-supplied HTTP client.
func NewWithHTTPClient(httpClient *http.Client) *Client {
	return &Client{api: spotify.New(httpClient)}
}
