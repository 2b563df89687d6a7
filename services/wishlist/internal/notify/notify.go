// Package notify delivers price-drop emails to account owners.
package notify

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	apperrors "github.com/utafrali/EcommerceGo/pkg/errors"
	"github.com/utafrali/EcommerceGo/services/wishlist/internal/domain"
)

//go:embed templates/*.gohtml
var templatesFS embed.FS

var priceDropTemplate = template.Must(template.ParseFS(templatesFS, "templates/price_drop.gohtml"))

// Sender delivers a batch of price drops to one recipient.
type Sender interface {
	SendPriceDrops(ctx context.Context, to string, drops []domain.PriceDrop) error
}

// Config holds the sender identity and API key.
type Config struct {
	APIKey    string
	FromEmail string
	FromName  string
}

// mailClient is the subset of *sendgrid.Client used here.
type mailClient interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// SendGridSender sends price-drop emails through SendGrid.
type SendGridSender struct {
	client mailClient
	from   *mail.Email
	logger *slog.Logger
}

// NewSendGridSender creates a SendGrid backed sender.
func NewSendGridSender(cfg Config, logger *slog.Logger) (*SendGridSender, error) {
	if cfg.APIKey == "" || cfg.FromEmail == "" {
		return nil, fmt.Errorf("incomplete mail config: api key and from address are required")
	}
	return &SendGridSender{
		client: sendgrid.NewSendClient(cfg.APIKey),
		from:   mail.NewEmail(cfg.FromName, cfg.FromEmail),
		logger: logger,
	}, nil
}

// SendPriceDrops renders and sends one email listing every drop.
func (s *SendGridSender) SendPriceDrops(ctx context.Context, to string, drops []domain.PriceDrop) error {
	if to == "" || len(drops) == 0 {
		return nil
	}
	body, err := RenderPriceDrops(drops)
	if err != nil {
		return err
	}

	msg := mail.NewV3MailInit(s.from, Subject(drops), mail.NewEmail("", to),
		mail.NewContent("text/plain", PlainText(drops)),
		mail.NewContent("text/html", body),
	)
	resp, err := s.client.SendWithContext(ctx, msg)
	if err != nil {
		return fmt.Errorf("send price drop email: %w", err)
	}
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return apperrors.ServiceUnavailable("mail provider rate limit reached")
	case resp.StatusCode >= 300:
		return fmt.Errorf("send price drop email: provider returned status %d: %s", resp.StatusCode, resp.Body)
	}

	s.logger.DebugContext(ctx, "price drop email sent", slog.Int("drops", len(drops)))
	return nil
}

// LogSender writes price-drop notifications to the log instead of mailing.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender creates a sender that only logs.
func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

// SendPriceDrops logs one line per drop. It never fails.
func (s *LogSender) SendPriceDrops(ctx context.Context, to string, drops []domain.PriceDrop) error {
	for _, d := range drops {
		s.logger.InfoContext(ctx, "price drop notification",
			slog.String("account_id", d.Owner.ID()),
			slog.String("product_id", d.ProductID),
			slog.String("old_price", d.OldPrice.StringFixed(2)),
			slog.String("new_price", d.NewPrice.StringFixed(2)),
			slog.Bool("has_email", to != ""),
		)
	}
	return nil
}

// Subject builds the email subject line.
func Subject(drops []domain.PriceDrop) string {
	if len(drops) == 1 {
		return fmt.Sprintf("Price drop: %s is now %s", drops[0].ProductName, drops[0].NewPrice.StringFixed(2))
	}
	return fmt.Sprintf("%d items on your wishlist dropped in price", len(drops))
}

// RenderPriceDrops renders the HTML body.
func RenderPriceDrops(drops []domain.PriceDrop) (string, error) {
	var buf bytes.Buffer
	if err := priceDropTemplate.Execute(&buf, struct{ Drops []domain.PriceDrop }{drops}); err != nil {
		return "", fmt.Errorf("render price drop email: %w", err)
	}
	return buf.String(), nil
}

// PlainText renders the text alternative.
func PlainText(drops []domain.PriceDrop) string {
	var b strings.Builder
	b.WriteString("Items on your wishlist dropped in price:\n\n")
	for _, d := range drops {
		fmt.Fprintf(&b, "- %s: %s -> %s (-%s%%)", d.ProductName,
			d.OldPrice.StringFixed(2), d.NewPrice.StringFixed(2), d.DropPct.StringFixed(0))
		if d.Permalink != "" {
			fmt.Fprintf(&b, " %s", d.Permalink)
		}
		b.WriteString("\n")
	}
	return b.String()
}
