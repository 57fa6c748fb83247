package out

import "context"

// Mailer sends outbound notification email through the connected mailbox.
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// InboundMail is one unread customer email fetched from the support mailbox.
type InboundMail struct {
	ProviderID string
	From       string
	Subject    string
	Body       string
}

// MailProvider fetches raw customer email from the inbound channel.
type MailProvider interface {
	// FetchUnread returns up to limit unread messages without mutating them.
	FetchUnread(ctx context.Context, limit int) ([]InboundMail, error)

	// MarkRead flags a fetched message as processed.
	MarkRead(ctx context.Context, providerID string) error
}
