package notification

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/spec-kit/ticket-rewards/internal/domain"
)

// Gateway hands a job to an external delivery channel.
type Gateway interface {
	Channel() domain.Channel
	Send(ctx context.Context, recipient *domain.User, job Job) error
}

// EmailGateway is the SMTP adapter boundary. Delivery itself belongs to the mail service.
type EmailGateway struct {
	from   string
	logger *zap.Logger
}

// NewEmailGateway builds the email adapter.
func NewEmailGateway(from string, logger *zap.Logger) *EmailGateway {
	return &EmailGateway{from: from, logger: logger}
}

func (g *EmailGateway) Channel() domain.Channel { return domain.ChannelEmail }

func (g *EmailGateway) Send(_ context.Context, recipient *domain.User, job Job) error {
	if strings.TrimSpace(g.from) == "" || strings.TrimSpace(recipient.Email) == "" {
		return nil
	}
	g.logger.Debug("email notification handed off",
		zap.String("from", g.from),
		zap.String("to", recipient.Email),
		zap.String("type", job.Type))
	return nil
}

// WhatsAppGateway is the WhatsApp adapter boundary.
type WhatsAppGateway struct {
	url    string
	logger *zap.Logger
}

// NewWhatsAppGateway builds the WhatsApp adapter.
func NewWhatsAppGateway(url string, logger *zap.Logger) *WhatsAppGateway {
	return &WhatsAppGateway{url: url, logger: logger}
}

func (g *WhatsAppGateway) Channel() domain.Channel { return domain.ChannelWhatsApp }

func (g *WhatsAppGateway) Send(_ context.Context, recipient *domain.User, job Job) error {
	if strings.TrimSpace(g.url) == "" || strings.TrimSpace(recipient.Phone) == "" {
		return nil
	}
	g.logger.Debug("whatsapp notification handed off",
		zap.String("url", g.url),
		zap.String("phone", recipient.Phone),
		zap.String("type", job.Type))
	return nil
}

// RateLimited throttles a gateway so bursts of notifications cannot flood the provider.
type RateLimited struct {
	Gateway
	limiter *rate.Limiter
}

// NewRateLimited wraps gw with a token bucket of perSecond and burst.
func NewRateLimited(gw Gateway, perSecond float64, burst int) *RateLimited {
	if burst <= 0 {
		burst = 1
	}
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	return &RateLimited{Gateway: gw, limiter: rate.NewLimiter(limit, burst)}
}

func (r *RateLimited) Send(ctx context.Context, recipient *domain.User, job Job) error {
	if err := r.limiter.Wait(ctx); err != nil {
		return err
	}
	return r.Gateway.Send(ctx, recipient, job)
}
