package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// GmailCredentials locates the OAuth client and the user token. Inline JSON
// takes precedence over files.
type GmailCredentials struct {
	ClientJSON string
	ClientFile string
	TokenJSON  string
	TokenFile  string
}

// Configured reports whether both the client and the token are provided.
func (c GmailCredentials) Configured() bool {
	return (c.ClientJSON != "" || c.ClientFile != "") && (c.TokenJSON != "" || c.TokenFile != "")
}

// OAuthConfig builds the read-only Gmail OAuth configuration.
func (c GmailCredentials) OAuthConfig() (*oauth2.Config, error) {
	b, err := readInlineOrFile(c.ClientJSON, c.ClientFile, "oauth client")
	if err != nil {
		return nil, err
	}
	cfg, err := google.ConfigFromJSON(b, gmail.GmailReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("oauth config: %w", err)
	}
	return cfg, nil
}

// Token loads the stored user token.
func (c GmailCredentials) Token() (*oauth2.Token, error) {
	b, err := readInlineOrFile(c.TokenJSON, c.TokenFile, "oauth token")
	if err != nil {
		return nil, err
	}
	var tok oauth2.Token
	if err := json.Unmarshal(b, &tok); err != nil {
		return nil, fmt.Errorf("decode oauth token: %w", err)
	}
	return &tok, nil
}

// NewGmailService creates a Gmail client whose token refreshes automatically.
func NewGmailService(ctx context.Context, creds GmailCredentials) (*gmail.Service, error) {
	cfg, err := creds.OAuthConfig()
	if err != nil {
		return nil, err
	}
	tok, err := creds.Token()
	if err != nil {
		return nil, err
	}
	svc, err := gmail.NewService(ctx, option.WithTokenSource(cfg.TokenSource(ctx, tok)))
	if err != nil {
		return nil, fmt.Errorf("create gmail service: %w", err)
	}
	return svc, nil
}

func readInlineOrFile(inline, path, what string) ([]byte, error) {
	switch {
	case strings.TrimSpace(inline) != "":
		return []byte(inline), nil
	case path != "":
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s file: %w", what, err)
		}
		return b, nil
	default:
		return nil, errors.New("missing " + what + " credentials")
	}
}
