package federation

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"

	"github.com/aegis-id/aegis/internal/shared"
)

// Identity is the profile a provider asserts for an external subject.
type Identity struct {
	Subject   string
	Email     string
	FirstName string
	LastName  string
}

// Provider brokers the authorization-code exchange with one external
// OAuth2 identity provider.
type Provider struct {
	name        string
	config      *oauth2.Config
	userInfoURL string
}

// ProviderConfig carries the settings of an external OAuth2 provider.
type ProviderConfig struct {
	Name         string
	ClientID     string
	ClientSecret string
	AuthURL      string
	TokenURL     string
	UserInfoURL  string
	RedirectURL  string
	Scopes       []string
}

// NewProvider constructs a Provider.
func NewProvider(cfg ProviderConfig) *Provider {
	return &Provider{
		name: cfg.Name,
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       cfg.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.AuthURL,
				TokenURL: cfg.TokenURL,
			},
		},
		userInfoURL: cfg.UserInfoURL,
	}
}

// Name returns the provider name used in federated identity records.
func (p *Provider) Name() string {
	return p.name
}

// AuthCodeURL builds the authorization redirect URL carrying state.
func (p *Provider) AuthCodeURL(state string) string {
	return p.config.AuthCodeURL(state)
}

type userInfo struct {
	Sub        string `json:"sub"`
	ID         string `json:"id"`
	Email      string `json:"email"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
}

// Exchange trades an authorization code for the external profile. Every
// provider-side or network failure is reported as
// shared.ErrFederationFailed, never as a missing user.
func (p *Provider) Exchange(ctx context.Context, code string) (Identity, error) {
	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: exchange code: %v", shared.ErrFederationFailed, err)
	}

	client := p.config.Client(ctx, token)
	resp, err := client.Get(p.userInfoURL)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: fetch profile: %v", shared.ErrFederationFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Identity{}, fmt.Errorf("%w: profile endpoint returned %d", shared.ErrFederationFailed, resp.StatusCode)
	}

	var info userInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return Identity{}, fmt.Errorf("%w: decode profile: %v", shared.ErrFederationFailed, err)
	}

	subject := info.Sub
	if subject == "" {
		subject = info.ID
	}
	if subject == "" || info.Email == "" {
		return Identity{}, fmt.Errorf("%w: profile missing subject or email", shared.ErrFederationFailed)
	}
	return Identity{
		Subject:   subject,
		Email:     info.Email,
		FirstName: info.GivenName,
		LastName:  info.FamilyName,
	}, nil
}
