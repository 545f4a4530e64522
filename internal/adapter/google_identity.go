package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	apperrors "github.com/cryptobrief/internal/errors"
	"github.com/cryptobrief/internal/models"
)

const (
	googleProvider    = "google"
	googleUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"
)

// GoogleIdentity delegates sign-in to Google. It only resolves who the user
// is; the server keeps no credentials of its own.
type GoogleIdentity struct {
	config      *oauth2.Config
	userInfoURL string
	httpClient  *http.Client
}

// NewGoogleIdentity creates an identity adapter for the given OAuth client
func NewGoogleIdentity(clientID, clientSecret, redirectURL string) *GoogleIdentity {
	return &GoogleIdentity{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes: []string{
				"openid",
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			Endpoint: google.Endpoint,
		},
		userInfoURL: googleUserInfoURL,
		httpClient:  &http.Client{Timeout: 15 * time.Second},
	}
}

// WithEndpoints points the adapter at different token and userinfo URLs
func (g *GoogleIdentity) WithEndpoints(authURL, tokenURL, userInfoURL string) *GoogleIdentity {
	g.config.Endpoint = oauth2.Endpoint{AuthURL: authURL, TokenURL: tokenURL}
	g.userInfoURL = userInfoURL
	return g
}

// Configured reports whether a client id is set
func (g *GoogleIdentity) Configured() bool {
	return g.config.ClientID != ""
}

// NewVerifier returns a fresh PKCE code verifier
func (g *GoogleIdentity) NewVerifier() string {
	return oauth2.GenerateVerifier()
}

// AuthCodeURL returns the consent page URL for state and PKCE verifier
func (g *GoogleIdentity) AuthCodeURL(state, verifier string) string {
	return g.config.AuthCodeURL(state,
		oauth2.S256ChallengeOption(verifier),
		oauth2.SetAuthURLParam("prompt", "select_account"),
	)
}

// Exchange trades an authorization code for the user's profile
func (g *GoogleIdentity) Exchange(ctx context.Context, code, verifier string) (*models.Profile, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, g.httpClient)

	token, err := g.config.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
			return nil, apperrors.NewUpstreamStatusError(googleProvider, retrieveErr.Response.StatusCode, string(retrieveErr.Body))
		}
		return nil, apperrors.NewUpstreamFailureError(googleProvider, err)
	}
	return g.fetchProfile(ctx, token)
}

// ProfileFromAccessToken resolves the profile for a token the browser
// obtained directly from Google
func (g *GoogleIdentity) ProfileFromAccessToken(ctx context.Context, accessToken string) (*models.Profile, error) {
	accessToken = strings.TrimSpace(accessToken)
	if accessToken == "" {
		return nil, apperrors.NewUnauthorizedError("missing access token")
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, g.httpClient)
	return g.fetchProfile(ctx, &oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"})
}

type googleUserInfo struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

func (g *GoogleIdentity) fetchProfile(ctx context.Context, token *oauth2.Token) (*models.Profile, error) {
	client := g.config.Client(ctx, token)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.userInfoURL, nil)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build userinfo request", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, apperrors.NewUpstreamFailureError(googleProvider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, apperrors.NewUpstreamStatusError(googleProvider, resp.StatusCode, string(body))
	}

	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, apperrors.NewMalformedResponseError(googleProvider, err)
	}
	if info.Email == "" {
		return nil, apperrors.NewUnauthorizedError("identity provider returned no email address")
	}

	return &models.Profile{
		ID:      info.Sub,
		Email:   strings.ToLower(info.Email),
		Name:    info.Name,
		Picture: info.Picture,
	}, nil
}
