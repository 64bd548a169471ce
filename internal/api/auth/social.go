package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/markbates/goth"
	"github.com/markbates/goth/providers/facebook"
	"github.com/markbates/goth/providers/github"
	"github.com/markbates/goth/providers/google"

	"github.com/FACorreiaa/learnhub-api/config"
	"github.com/FACorreiaa/learnhub-api/internal/types"
)

var ErrUnsupportedProvider = errors.New("unsupported social provider")

// SocialVerifier resolves a provider access token to the identity it
// belongs to.
type SocialVerifier interface {
	FetchProfile(ctx context.Context, provider types.Provider, accessToken string) (*types.SocialProfile, error)
}

type userFetcher interface {
	FetchUser(session goth.Session) (goth.User, error)
}

type providerEntry struct {
	fetcher    userFetcher
	newSession func(accessToken string) goth.Session
}

// GothVerifier asks the provider's profile endpoint, through goth, who owns
// an access token obtained by a mobile or web client.
type GothVerifier struct {
	providers map[types.Provider]providerEntry
	logger    *slog.Logger
}

var _ SocialVerifier = (*GothVerifier)(nil)

// NewGothVerifier registers every provider that has a client id configured.
func NewGothVerifier(cfg config.Config, logger *slog.Logger) *GothVerifier {
	v := &GothVerifier{providers: make(map[types.Provider]providerEntry), logger: logger}

	if p := cfg.OAuth.Google; p.ClientID != "" {
		v.providers[types.ProviderGoogle] = providerEntry{
			fetcher: google.New(p.ClientID, p.ClientSecret, p.CallbackURL, "email", "profile"),
			newSession: func(token string) goth.Session {
				return &google.Session{AccessToken: token}
			},
		}
	}
	if p := cfg.OAuth.Facebook; p.ClientID != "" {
		v.providers[types.ProviderFacebook] = providerEntry{
			fetcher: facebook.New(p.ClientID, p.ClientSecret, p.CallbackURL, "email"),
			newSession: func(token string) goth.Session {
				return &facebook.Session{AccessToken: token}
			},
		}
	}
	if p := cfg.OAuth.Github; p.ClientID != "" {
		v.providers[types.ProviderGithub] = providerEntry{
			fetcher: github.New(p.ClientID, p.ClientSecret, p.CallbackURL, "user:email"),
			newSession: func(token string) goth.Session {
				return &github.Session{AccessToken: token}
			},
		}
	}
	return v
}

func (v *GothVerifier) FetchProfile(ctx context.Context, provider types.Provider, accessToken string) (*types.SocialProfile, error) {
	l := v.logger.With(slog.String("method", "FetchProfile"), slog.String("provider", string(provider)))

	entry, ok := v.providers[provider]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProvider, provider)
	}

	gu, err := entry.fetcher.FetchUser(entry.newSession(accessToken))
	if err != nil {
		l.WarnContext(ctx, "Provider rejected access token", slog.Any("error", err))
		return nil, fmt.Errorf("failed to fetch %s profile: %w", provider, err)
	}

	name := gu.Name
	if name == "" {
		name = strings.TrimSpace(gu.FirstName + " " + gu.LastName)
	}
	if name == "" {
		name = gu.NickName
	}

	return &types.SocialProfile{
		Email:      strings.ToLower(strings.TrimSpace(gu.Email)),
		Name:       name,
		Provider:   provider,
		ProviderID: gu.UserID,
		Image:      gu.AvatarURL,
	}, nil
}
