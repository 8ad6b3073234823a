// Package sso exposes the social-login surface: which providers are enabled
// and where to redirect the browser. Provider protocol internals stay inside
// the oauth2/oidc libraries.
package sso

import (
	"context"
	"fmt"
	"sort"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/facebook"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/linkedin"

	apperrors "github.com/botsmithhq/botsmith/pkg/errors"
)

// Provider names accepted on the login surface.
const (
	ProviderGoogle   = "google"
	ProviderFacebook = "facebook"
	ProviderLinkedIn = "linkedin"
)

// ErrUnknownProvider reports a redirect request for a provider that is not
// configured or not supported.
var ErrUnknownProvider = apperrors.NewNotFound("SSO_PROVIDER_UNKNOWN", "SSO provider is not enabled")

// Credentials holds the OAuth2 client registration for one provider.
type Credentials struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// Enabled reports whether the provider can be offered to users.
func (c Credentials) Enabled() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// Registry maps provider names to ready oauth2 configurations.
type Registry struct {
	configs map[string]*oauth2.Config
}

// NewRegistry builds a Registry from per-provider credentials. Providers with
// missing credentials are silently skipped, so an empty config yields an empty
// (but usable) registry.
func NewRegistry(google, facebook, linkedin Credentials) *Registry {
	r := &Registry{configs: make(map[string]*oauth2.Config)}

	if google.Enabled() {
		r.configs[ProviderGoogle] = googleConfig(google)
	}
	if facebook.Enabled() {
		r.configs[ProviderFacebook] = facebookConfig(facebook)
	}
	if linkedin.Enabled() {
		r.configs[ProviderLinkedIn] = linkedinConfig(linkedin)
	}

	return r
}

// EnabledProviders returns the sorted names of configured providers.
func (r *Registry) EnabledProviders() []string {
	names := make([]string, 0, len(r.configs))
	for name := range r.configs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RedirectURL builds the provider's authorization URL carrying the given
// anti-forgery state.
func (r *Registry) RedirectURL(provider, state string) (string, error) {
	cfg, ok := r.configs[provider]
	if !ok {
		return "", ErrUnknownProvider
	}
	return cfg.AuthCodeURL(state, oauth2.AccessTypeOnline), nil
}

// Exchange swaps the authorization code for a token with the provider.
func (r *Registry) Exchange(ctx context.Context, provider, code string) (*oauth2.Token, error) {
	cfg, ok := r.configs[provider]
	if !ok {
		return nil, ErrUnknownProvider
	}

	token, err := cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("sso: exchange code with %s: %w", provider, err)
	}
	return token, nil
}

func googleConfig(c Credentials) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		RedirectURL:  c.RedirectURL,
		Endpoint:     google.Endpoint,
		Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
	}
}

func facebookConfig(c Credentials) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		RedirectURL:  c.RedirectURL,
		Endpoint:     facebook.Endpoint,
		Scopes:       []string{"email", "public_profile"},
	}
}

func linkedinConfig(c Credentials) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		RedirectURL:  c.RedirectURL,
		Endpoint:     linkedin.Endpoint,
		Scopes:       []string{"r_liteprofile", "r_emailaddress"},
	}
}
