package sessions

import "context"

// Message is an outbound notification for a single account.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Mailer delivers account notifications. Implementations should be safe for
// concurrent use; the Facade sends from background goroutines.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// MailerFunc adapts a function to the Mailer interface.
type MailerFunc func(ctx context.Context, msg Message) error

func (f MailerFunc) Send(ctx context.Context, msg Message) error {
	return f(ctx, msg)
}

type noopMailer struct{}

func (noopMailer) Send(ctx context.Context, msg Message) error { return nil }

// NewLogMailer returns a Mailer that writes messages to the logger instead of
// delivering them. Useful for development and examples.
func NewLogMailer(logger Logger) Mailer {
	if logger == nil {
		logger = defLogger{}
	}

	return MailerFunc(func(ctx context.Context, msg Message) error {
		logger.Info("mail to=%s subject=%q body=%q", msg.To, msg.Subject, msg.Body)
		return nil
	})
}

func normalizeMailer(mailer Mailer) Mailer {
	if mailer == nil {
		return noopMailer{}
	}
	return mailer
}
