package ingest

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"google.golang.org/api/gmail/v1"

	"subtrack/internal/cache"
	"subtrack/internal/core"
)

const (
	DefaultGmailQuery      = "subject:(subscription OR abonnement OR confirmation) newer_than:365d"
	DefaultGmailMaxResults = 50

	gmailUser           = "me"
	gmailFetchLimit     = 4
	gmailCacheSize      = 500
	gmailCacheTTL       = 6 * time.Hour
	gmailRequestTimeout = 30 * time.Second
)

// MessageAPI is the slice of the Gmail API the source needs.
type MessageAPI interface {
	ListMessageIDs(ctx context.Context, query string, max int64) ([]string, error)
	GetMessage(ctx context.Context, id string) (*gmail.Message, error)
}

type gmailAPI struct {
	svc *gmail.Service
}

// NewMessageAPI adapts a Gmail service.
func NewMessageAPI(svc *gmail.Service) MessageAPI {
	return &gmailAPI{svc: svc}
}

func (g *gmailAPI) ListMessageIDs(ctx context.Context, query string, max int64) ([]string, error) {
	resp, err := g.svc.Users.Messages.List(gmailUser).Q(query).MaxResults(max).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("list gmail messages: %w", err)
	}
	ids := make([]string, 0, len(resp.Messages))
	for _, m := range resp.Messages {
		ids = append(ids, m.Id)
	}
	return ids, nil
}

func (g *gmailAPI) GetMessage(ctx context.Context, id string) (*gmail.Message, error) {
	msg, err := g.svc.Users.Messages.Get(gmailUser, id).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("get gmail message %s: %w", id, err)
	}
	return msg, nil
}

// GmailSource reads receipts from a mailbox and parses them into candidates.
type GmailSource struct {
	api    MessageAPI
	parser *EmailParser
	texts  *cache.LRUCache[string]
	logger *slog.Logger

	query      string
	maxResults int64
}

func NewGmailSource(api MessageAPI, parser *EmailParser, logger *slog.Logger) *GmailSource {
	if parser == nil {
		parser = NewEmailParser()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &GmailSource{
		api:    api,
		parser: parser,
		texts:  cache.NewLRUCache[string](gmailCacheSize, gmailCacheTTL),
		logger: logger,

		query:      DefaultGmailQuery,
		maxResults: DefaultGmailMaxResults,
	}
}

// SetDefaults replaces the query and limit used when a request leaves them
// empty. Zero values keep the current defaults.
func (g *GmailSource) SetDefaults(query string, maxResults int64) {
	if query != "" {
		g.query = query
	}
	if maxResults > 0 {
		g.maxResults = maxResults
	}
}

// TextCache exposes the message text cache so it can be swept.
func (g *GmailSource) TextCache() *cache.LRUCache[string] {
	return g.texts
}

// Fetch lists messages matching query and parses each one. Messages are
// fetched concurrently; the result keeps the listing order. Messages with no
// readable text are dropped.
func (g *GmailSource) Fetch(ctx context.Context, query string, maxResults int64) ([]core.Candidate, error) {
	if query == "" {
		query = g.query
	}
	if maxResults <= 0 {
		maxResults = g.maxResults
	}

	ctx, cancel := context.WithTimeout(ctx, gmailRequestTimeout)
	defer cancel()

	ids, err := g.api.ListMessageIDs(ctx, query, maxResults)
	if err != nil {
		return nil, err
	}

	texts := make([]string, len(ids))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(gmailFetchLimit)
	for i, id := range ids {
		eg.Go(func() error {
			text, err := g.texts.GetOrLoad(id, func() (string, error) {
				msg, err := g.api.GetMessage(egCtx, id)
				if err != nil {
					return "", err
				}
				return MessageText(msg), nil
			})
			if err != nil {
				return err
			}
			texts[i] = text
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	out := make([]core.Candidate, 0, len(ids))
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			g.logger.DebugContext(ctx, "Skipping gmail message without text", "message_id", ids[i])
			continue
		}
		c := g.parser.Parse(text)
		c.SourceMessageID = ids[i]
		out = append(out, c)
	}
	g.logger.InfoContext(ctx, "Gmail messages parsed", "listed", len(ids), "parsed", len(out))
	return out, nil
}

// MessageText returns the readable text of a message: the payload body,
// else the first text/plain part, else the first part carrying data, else
// the snippet.
func MessageText(msg *gmail.Message) string {
	if msg == nil {
		return ""
	}
	if text := payloadText(msg.Payload); text != "" {
		return text
	}
	return msg.Snippet
}

func payloadText(p *gmail.MessagePart) string {
	if p == nil {
		return ""
	}
	if p.Body != nil && p.Body.Data != "" {
		if text, ok := decodeBase64URL(p.Body.Data); ok {
			return text
		}
	}
	for _, part := range p.Parts {
		if !strings.HasPrefix(part.MimeType, "text/plain") || part.Body == nil || part.Body.Data == "" {
			continue
		}
		if text, ok := decodeBase64URL(part.Body.Data); ok {
			return text
		}
	}
	for _, part := range p.Parts {
		if part.Body == nil || part.Body.Data == "" {
			continue
		}
		if text, ok := decodeBase64URL(part.Body.Data); ok {
			return text
		}
	}
	return ""
}

func decodeBase64URL(data string) (string, bool) {
	b, err := base64.URLEncoding.DecodeString(data)
	if err != nil {
		b, err = base64.RawURLEncoding.DecodeString(strings.TrimRight(data, "="))
		if err != nil {
			return "", false
		}
	}
	return strings.ToValidUTF8(string(b), ""), true
}
