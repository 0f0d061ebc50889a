package authsdk

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

const (
	AuthorizePath = "/oauth2/authorize"
	TokenPath     = "/oauth2/token"
	UserInfoPath  = "/api/v1/user"
)

// Client is a relying party of the PESU OAuth2 provider. It wraps an
// oauth2.Config preconfigured for the provider's endpoints and PKCE.
type Client struct {
	BaseURL    string
	Config     *oauth2.Config
	HTTPClient *http.Client
}

// NewClient configures a relying party. Pass an empty clientSecret for
// public clients; credentials are always sent in the request body.
func NewClient(baseURL, clientID, clientSecret, redirectURI string, scopes ...string) *Client {
	baseURL = strings.TrimSuffix(baseURL, "/")
	return &Client{
		BaseURL: baseURL,
		Config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURI,
			Scopes:       scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   baseURL + AuthorizePath,
				TokenURL:  baseURL + TokenPath,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// AuthCodeURL returns the URL to send the owner to and the PKCE verifier to
// keep until the callback.
func (c *Client) AuthCodeURL(state string) (authURL, verifier string) {
	verifier = oauth2.GenerateVerifier()
	return c.Config.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier)), verifier
}

// Exchange redeems an authorization code. Server rejections surface as
// *oauth2.RetrieveError.
func (c *Client) Exchange(ctx context.Context, code, verifier string) (*oauth2.Token, error) {
	var opts []oauth2.AuthCodeOption
	if verifier != "" {
		opts = append(opts, oauth2.VerifierOption(verifier))
	}
	return c.Config.Exchange(c.context(ctx), code, opts...)
}

// Refresh rotates refreshToken into a new pair.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	expired := &oauth2.Token{RefreshToken: refreshToken, Expiry: time.Unix(1, 0)}
	return c.Config.TokenSource(c.context(ctx), expired).Token()
}

// Profile fetches the consented profile projection for tok. Resource API
// rejections surface as *ResourceError.
func (c *Client) Profile(ctx context.Context, tok *oauth2.Token) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+UserInfoPath, nil)
	if err != nil {
		return nil, err
	}
	tok.SetAuthHeader(req)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, decodeError(resp.StatusCode, body)
	}

	var profile map[string]any
	if err := json.Unmarshal(body, &profile); err != nil {
		return nil, fmt.Errorf("authsdk: decode profile: %w", err)
	}
	return profile, nil
}

func (c *Client) context(ctx context.Context) context.Context {
	if c.HTTPClient == nil {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, c.HTTPClient)
}
