package notify

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/mail"
	"net/smtp"
	"strconv"
	"strings"

	"shopeasy/utils"
)

// ErrInvalidRecipient is returned for a recipient that is not a single mail address.
var ErrInvalidRecipient = errors.New("email: invalid recipient")

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// EmailConfig holds SMTP settings.
type EmailConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

// EmailNotifier mails events to their recipient. Events without one are skipped.
type EmailNotifier struct {
	cfg    EmailConfig
	send   sendFunc
	logger *utils.Logger
}

func NewEmailNotifier(cfg EmailConfig, logger *utils.Logger) *EmailNotifier {
	return &EmailNotifier{cfg: cfg, send: smtp.SendMail, logger: logger}
}

func (n *EmailNotifier) Notify(ctx context.Context, e Event) error {
	if e.Recipient == "" {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	to, err := mail.ParseAddress(e.Recipient)
	if err != nil {
		return fmt.Errorf("%w %q: %v", ErrInvalidRecipient, e.Recipient, err)
	}

	var auth smtp.Auth
	if n.cfg.User != "" {
		auth = smtp.PlainAuth("", n.cfg.User, n.cfg.Password, n.cfg.Host)
	}
	addr := n.cfg.Host + ":" + strconv.Itoa(n.cfg.Port)

	if err := n.send(addr, auth, n.cfg.From, []string{to.Address}, n.message(to, e)); err != nil {
		return fmt.Errorf("email: send to %s: %w", e.Recipient, err)
	}
	n.logger.Info("[notify] Emailed %s for %q to %s", e.Kind, e.Query, e.Recipient)
	return nil
}

func (n *EmailNotifier) message(to *mail.Address, e Event) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", n.cfg.From)
	fmt.Fprintf(&b, "To: %s\r\n", to.String())
	fmt.Fprintf(&b, "Subject: %s\r\n", subject(e))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")

	if e.Kind == KindPriceAlert && e.Cheapest != nil {
		fmt.Fprintf(&b, "Good news! %q is now available for %.2f on %s, at or below your target of %.2f.\r\n",
			e.Cheapest.Title, e.Cheapest.Price, e.Cheapest.Source, e.Threshold.Or(0))
		fmt.Fprintf(&b, "%s\r\n\r\n", e.Cheapest.URL)
	}

	if len(e.TopResults) > 0 {
		fmt.Fprintf(&b, "Top results for %q:\r\n\r\n", e.Query)
		for i, r := range e.TopResults {
			fmt.Fprintf(&b, "%d. %s\r\n   %.2f on %s, score %.4f", i+1, r.Title, r.Price, r.Source, r.Score)
			for _, l := range r.Labels {
				fmt.Fprintf(&b, " [%s]", l)
			}
			fmt.Fprintf(&b, "\r\n   %s\r\n", r.URL)
		}
	} else {
		fmt.Fprintf(&b, "No products were found for %q.\r\n", e.Query)
	}
	return []byte(b.String())
}

// subject builds a single-line, Q-encoded Subject value; line breaks in the
// query are flattened so they cannot start new headers.
func subject(e Event) string {
	query := strings.Join(strings.Fields(e.Query), " ")
	s := "ShopEasy comparison: " + query
	if e.Kind == KindPriceAlert {
		s = "ShopEasy price alert: " + query
	}
	return mime.QEncoding.Encode("utf-8", s)
}
