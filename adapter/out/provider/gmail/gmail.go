// Package gmail implements the support-mailbox adapter on the Gmail API.
package gmail

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/starkeranthonio-sudo/churn-predictor-backend/core/port/out"
)

const (
	// Fetched bodies shorter than this are discarded as noise.
	minBodyLen = 20

	// Cleaned bodies are capped to keep scoring prompts small.
	maxBodyLen = 800
)

// Config holds Gmail adapter configuration. The refresh token belongs to the
// support mailbox account.
type Config struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
}

// Adapter implements out.Mailer and out.MailProvider for a single support
// mailbox.
type Adapter struct {
	config *oauth2.Config
	token  *oauth2.Token
	cb     *gobreaker.CircuitBreaker
	log    zerolog.Logger
}

// NewAdapter creates a new Gmail adapter.
func NewAdapter(cfg Config, log zerolog.Logger) *Adapter {
	config := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Scopes: []string{
			gmail.GmailReadonlyScope,
			gmail.GmailSendScope,
			gmail.GmailModifyScope,
		},
		Endpoint: google.Endpoint,
	}

	cbSettings := gobreaker.Settings{
		Name:        "gmail-api",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.ConsecutiveFailures > 5 ||
				(counts.Requests >= 10 && failureRatio >= 0.6)
		},
	}

	return &Adapter{
		config: config,
		token:  &oauth2.Token{RefreshToken: cfg.RefreshToken},
		cb:     gobreaker.NewCircuitBreaker(cbSettings),
		log:    log.With().Str("component", "gmail_adapter").Logger(),
	}
}

func (a *Adapter) getService(ctx context.Context) (*gmail.Service, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
	}

	return gmail.NewService(ctx, option.WithTokenSource(
		a.config.TokenSource(ctx, a.token),
	))
}

// Send delivers one HTML email through the connected mailbox.
func (a *Adapter) Send(ctx context.Context, to, subject, htmlBody string) error {
	svc, err := a.getService(ctx)
	if err != nil {
		return fmt.Errorf("gmail service: %w", err)
	}

	var buf strings.Builder
	fmt.Fprintf(&buf, "To: %s\r\n", to)
	fmt.Fprintf(&buf, "Subject: %s\r\n", subject)
	buf.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	buf.WriteString("\r\n")
	buf.WriteString(htmlBody)

	_, err = a.cb.Execute(func() (interface{}, error) {
		return svc.Users.Messages.Send("me", &gmail.Message{
			Raw: base64.URLEncoding.EncodeToString([]byte(buf.String())),
		}).Context(ctx).Do()
	})
	if err != nil {
		return fmt.Errorf("failed to send mail to %s: %w", to, err)
	}

	a.log.Info().Str("to", to).Str("subject", subject).Msg("mail sent")
	return nil
}

// FetchUnread returns up to limit unread inbox messages with cleaned plain
// text bodies. Messages whose cleaned body is too short are skipped.
func (a *Adapter) FetchUnread(ctx context.Context, limit int) ([]out.InboundMail, error) {
	svc, err := a.getService(ctx)
	if err != nil {
		return nil, fmt.Errorf("gmail service: %w", err)
	}

	listed, err := a.cb.Execute(func() (interface{}, error) {
		return svc.Users.Messages.List("me").
			Q("is:unread in:inbox").
			MaxResults(int64(limit)).
			Context(ctx).Do()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list unread mail: %w", err)
	}

	resp := listed.(*gmail.ListMessagesResponse)
	if len(resp.Messages) == 0 {
		return nil, nil
	}

	mails := make([]out.InboundMail, 0, len(resp.Messages))
	for _, ref := range resp.Messages {
		msg, err := svc.Users.Messages.Get("me", ref.Id).Format("full").Context(ctx).Do()
		if err != nil {
			if apiErr, ok := err.(*googleapi.Error); ok && apiErr.Code == 404 {
				continue
			}
			return mails, fmt.Errorf("failed to get message %s: %w", ref.Id, err)
		}

		from := headerValue(msg.Payload, "From")
		body := CleanBody(extractBody(msg.Payload))
		if len(body) < minBodyLen {
			a.log.Debug().Str("message_id", ref.Id).Msg("skipping mail with empty or too short body")
			continue
		}

		mails = append(mails, out.InboundMail{
			ProviderID: ref.Id,
			From:       from,
			Subject:    headerValue(msg.Payload, "Subject"),
			Body:       body,
		})
	}

	return mails, nil
}

// MarkRead removes the UNREAD label from a processed message.
func (a *Adapter) MarkRead(ctx context.Context, providerID string) error {
	svc, err := a.getService(ctx)
	if err != nil {
		return fmt.Errorf("gmail service: %w", err)
	}

	_, err = svc.Users.Messages.Modify("me", providerID, &gmail.ModifyMessageRequest{
		RemoveLabelIds: []string{"UNREAD"},
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to mark message %s read: %w", providerID, err)
	}
	return nil
}

// ParseSender splits a From header into display name and address.
func ParseSender(from string) (name, email string) {
	addr, err := mail.ParseAddress(from)
	if err != nil {
		return from, from
	}
	if addr.Name == "" {
		return addr.Address, addr.Address
	}
	return addr.Name, addr.Address
}

func headerValue(payload *gmail.MessagePart, name string) string {
	if payload == nil {
		return ""
	}
	for _, h := range payload.Headers {
		if h.Name == name {
			return h.Value
		}
	}
	return ""
}

func extractBody(payload *gmail.MessagePart) string {
	if payload == nil {
		return ""
	}
	if payload.Body != nil && payload.Body.Data != "" {
		return decodeBody(payload.Body.Data)
	}
	for _, part := range payload.Parts {
		if part.MimeType == "text/plain" && part.Body != nil && part.Body.Data != "" {
			return decodeBody(part.Body.Data)
		}
	}
	return ""
}

func decodeBody(data string) string {
	decoded, err := base64.URLEncoding.DecodeString(data)
	if err != nil {
		decoded, err = base64.RawURLEncoding.DecodeString(data)
		if err != nil {
			return ""
		}
	}
	return string(decoded)
}

var (
	reHTMLTags     = regexp.MustCompile(`<[^>]*>`)
	reURLs         = regexp.MustCompile(`https?://\S+`)
	reEmails       = regexp.MustCompile(`[\w.-]+@[\w.-]+\.\w+`)
	reWhitespace   = regexp.MustCompile(`\s+`)
	footerPrefixes = []string{"Unsubscribe", "Consultez", "Cliquez"}
)

// CleanBody strips markup, links and boilerplate from a raw mail body and
// caps the result.
func CleanBody(raw string) string {
	lines := strings.Split(raw, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		cleaned := reHTMLTags.ReplaceAllString(line, "")
		cleaned = reURLs.ReplaceAllString(cleaned, "")
		cleaned = reEmails.ReplaceAllString(cleaned, "")
		cleaned = strings.TrimSpace(reWhitespace.ReplaceAllString(cleaned, " "))

		if len(cleaned) <= 10 || isFooterLine(cleaned) {
			continue
		}
		kept = append(kept, cleaned)
		if len(kept) == 10 {
			break
		}
	}

	body := strings.Join(kept, " ")
	if len(body) > maxBodyLen {
		body = body[:maxBodyLen]
	}
	return body
}

func isFooterLine(line string) bool {
	for _, prefix := range footerPrefixes {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	return strings.Contains(line, "version en ligne")
}

var (
	_ out.Mailer       = (*Adapter)(nil)
	_ out.MailProvider = (*Adapter)(nil)
)
