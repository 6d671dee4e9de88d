package gmail

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
)

// Scopes requested at sign-in. Modify covers moving to Trash; nothing here
// allows permanent deletion.
var Scopes = []string{
	gmail.GmailReadonlyScope,
	gmail.GmailModifyScope,
	gmail.GmailLabelsScope,
}

// Authenticator runs the OAuth authorization-code flow for one installed app.
type Authenticator struct {
	config    *oauth2.Config
	tokenPath string
	log       zerolog.Logger
}

func NewAuthenticator(credentialsPath, redirectURL, tokenPath string, log zerolog.Logger) (*Authenticator, error) {
	b, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}

	config, err := google.ConfigFromJSON(b, Scopes...)
	if err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}
	if redirectURL != "" {
		config.RedirectURL = redirectURL
	}

	return NewAuthenticatorFromConfig(config, tokenPath, log), nil
}

func NewAuthenticatorFromConfig(config *oauth2.Config, tokenPath string, log zerolog.Logger) *Authenticator {
	return &Authenticator{config: config, tokenPath: tokenPath, log: log}
}

// AuthURL is where the user grants access. state is echoed to the callback.
func (a *Authenticator) AuthURL(state string) string {
	return a.config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// Exchange trades the callback code for a token and persists it when a
// token path is configured.
func (a *Authenticator) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	tok, err := a.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", mapError(err))
	}
	if a.tokenPath != "" {
		if err := saveToken(a.tokenPath, tok); err != nil {
			a.log.Warn().Err(err).Str("path", a.tokenPath).Msg("cannot save token")
		}
	}
	return tok, nil
}

// CachedToken returns the persisted token, or nil when there is none.
func (a *Authenticator) CachedToken() (*oauth2.Token, error) {
	if a.tokenPath == "" {
		return nil, nil
	}
	tok, err := tokenFromFile(a.tokenPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read token: %w", err)
	}
	return tok, nil
}

func (a *Authenticator) TokenSource(ctx context.Context, tok *oauth2.Token) oauth2.TokenSource {
	return a.config.TokenSource(ctx, tok)
}

// Forget removes the persisted token.
func (a *Authenticator) Forget() error {
	if a.tokenPath == "" {
		return nil
	}
	if err := os.Remove(a.tokenPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove token: %w", err)
	}
	return nil
}

func tokenFromFile(path string) (*oauth2.Token, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var tok oauth2.Token
	if err := json.Unmarshal(b, &tok); err != nil {
		return nil, err
	}
	return &tok, nil
}

func saveToken(path string, tok *oauth2.Token) error {
	b, err := json.Marshal(tok)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o600)
}
