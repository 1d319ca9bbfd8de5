package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

const (
	githubUserInfoURL = "https://api.github.com/user"
	githubEmailsURL   = "https://api.github.com/user/emails"
)

// Identity is what the provider tells us about the signed-in account.
type Identity struct {
	Provider  string // "github", or the configured name
	Subject   string // provider's stable account ID
	Name      string
	Email     string // empty if the account hides it
	AvatarURL string
}

// IdentityProvider runs the authorization-code flow.
type IdentityProvider interface {
	// AuthURL is where to send the browser, carrying the CSRF state.
	AuthURL(state string) string
	// Exchange trades the callback code for the account's identity.
	Exchange(ctx context.Context, code string) (*Identity, error)
}

var _ IdentityProvider = (*OAuthProvider)(nil)

// OAuthConfig describes any OAuth2 provider with a JSON profile endpoint.
// Leaving AuthURL, TokenURL and UserInfoURL empty selects GitHub.
type OAuthConfig struct {
	Name         string
	ClientID     string
	ClientSecret string
	RedirectURL  string
	AuthURL      string
	TokenURL     string
	UserInfoURL  string
	// EmailsURL lists the account's addresses when the profile hides its
	// email (GitHub's /user/emails shape). Defaults to GitHub's for GitHub.
	EmailsURL string
	Scopes    []string
}

// OAuthProvider wraps golang.org/x/oauth2. The code-for-token exchange is
// server to server with the client secret; the provider's access token never
// reaches the browser.
type OAuthProvider struct {
	name        string
	config      *oauth2.Config
	userInfoURL string
	emailsURL   string
}

func NewOAuthProvider(cfg OAuthConfig) *OAuthProvider {
	endpoint := github.Endpoint
	userInfo := githubUserInfoURL
	emails := githubEmailsURL
	name := "github"
	scopes := []string{"read:user", "user:email"}

	if cfg.AuthURL != "" || cfg.TokenURL != "" {
		endpoint = oauth2.Endpoint{AuthURL: cfg.AuthURL, TokenURL: cfg.TokenURL}
		name = "oauth"
		emails = ""
		scopes = []string{"openid", "profile", "email"}
	}
	if cfg.UserInfoURL != "" {
		userInfo = cfg.UserInfoURL
	}
	if cfg.EmailsURL != "" {
		emails = cfg.EmailsURL
	}
	if cfg.Name != "" {
		name = cfg.Name
	}
	if len(cfg.Scopes) > 0 {
		scopes = cfg.Scopes
	}

	return &OAuthProvider{
		name: name,
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       scopes,
			Endpoint:     endpoint,
		},
		userInfoURL: userInfo,
		emailsURL:   emails,
	}
}

// Name is the provider label stored on User.Provider.
func (p *OAuthProvider) Name() string {
	return p.name
}

func (p *OAuthProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// profile covers both GitHub's /user shape and the OIDC userinfo shape.
type profile struct {
	ID        any    `json:"id"`  // GitHub: number
	Sub       string `json:"sub"` // OIDC
	Login     string `json:"login"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url"`
	Picture   string `json:"picture"`
	// OIDC; GitHub omits it. Some providers send "true"/"false" strings.
	EmailVerified any `json:"email_verified"`
}

// email is the profile address, or "" when the provider says it is unverified.
func (p profile) email() string {
	switch v := p.EmailVerified.(type) {
	case bool:
		if !v {
			return ""
		}
	case string:
		if !strings.EqualFold(v, "true") {
			return ""
		}
	}
	return strings.TrimSpace(p.Email)
}

type accountEmail struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

func (p profile) subject() string {
	if p.Sub != "" {
		return p.Sub
	}
	switch v := p.ID.(type) {
	case json.Number:
		return v.String()
	case string:
		return v
	}
	return ""
}

func (p *OAuthProvider) Exchange(ctx context.Context, code string) (*Identity, error) {
	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("auth: exchanging OAuth code: %w", err)
	}

	// Client adds "Authorization: Bearer <access token>" to every request.
	client := p.config.Client(ctx, token)

	var prof profile
	if err := getJSON(ctx, client, p.userInfoURL, &prof); err != nil {
		return nil, fmt.Errorf("auth: fetching profile: %w", err)
	}

	subject := prof.subject()
	if subject == "" || subject == "0" {
		return nil, fmt.Errorf("auth: provider returned a profile with no account ID")
	}

	name := strings.TrimSpace(prof.Name)
	if name == "" {
		name = prof.Login
	}
	avatar := prof.AvatarURL
	if avatar == "" {
		avatar = prof.Picture
	}

	email := prof.email()
	if email == "" && prof.EmailVerified == nil && p.emailsURL != "" {
		email, err = p.primaryEmail(ctx, client)
		if err != nil {
			return nil, err
		}
	}

	return &Identity{
		Provider:  p.name,
		Subject:   subject,
		Name:      name,
		Email:     email,
		AvatarURL: avatar,
	}, nil
}

// primaryEmail picks the primary verified address, falling back to any
// verified one. Unverified addresses are never returned.
func (p *OAuthProvider) primaryEmail(ctx context.Context, client *http.Client) (string, error) {
	var list []accountEmail
	if err := getJSON(ctx, client, p.emailsURL, &list); err != nil {
		return "", fmt.Errorf("auth: fetching account emails: %w", err)
	}

	fallback := ""
	for _, e := range list {
		if !e.Verified {
			continue
		}
		if e.Primary {
			return e.Email, nil
		}
		if fallback == "" {
			fallback = e.Email
		}
	}
	return fallback, nil
}

// getJSON GETs url with the token-bearing client and decodes the body into v.
// UseNumber keeps large numeric IDs exact instead of float64.
func getJSON(ctx context.Context, client *http.Client, url string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s returned status %d", url, resp.StatusCode)
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	return dec.Decode(v)
}
