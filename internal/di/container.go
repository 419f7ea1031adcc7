// Package di assembles the service layer from repositories and external
// collaborators for runtime use.
package di

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/auric-jewels/api/internal/courier"
	"github.com/auric-jewels/api/internal/invoices"
	"github.com/auric-jewels/api/internal/mail"
	"github.com/auric-jewels/api/internal/payments"
	"github.com/auric-jewels/api/internal/platform/config"
	"github.com/auric-jewels/api/internal/repositories"
	"github.com/auric-jewels/api/internal/services"
)

// Services bundles the service-layer contracts that handlers rely upon.
type Services struct {
	Checkout   services.CheckoutService
	Payments   services.PaymentService
	Promotions services.PromotionService
	Orders     services.OrderService
	System     services.SystemService
}

// Collaborators are the external clients the service graph depends on.
// The caller constructs them so their lifecycles stay in main.
type Collaborators struct {
	Payments        *payments.Manager
	WebhookVerifier payments.WebhookVerifier
	Courier         *courier.Client
	Mailer          mail.Sender
	Templates       *mail.Builder
	Invoices        *invoices.Store
	Events          services.OrderEventPublisher
	Logger          *zap.Logger
	Clock           func() time.Time
}

// Container wires repositories and services for runtime use.
type Container struct {
	Config       config.Config
	Repositories repositories.Registry
	Services     Services
}

// NewContainer constructs the runtime dependencies.
func NewContainer(ctx context.Context, cfg config.Config, reg repositories.Registry, collab Collaborators) (*Container, error) {
	if reg == nil {
		return nil, errors.New("repositories registry is required")
	}

	svc, err := buildServices(cfg, reg, collab)
	if err != nil {
		return nil, err
	}

	return &Container{
		Config:       cfg,
		Repositories: reg,
		Services:     svc,
	}, nil
}

// Close releases resources such as repository clients.
func (c *Container) Close(ctx context.Context) error {
	if c == nil || c.Repositories == nil {
		return nil
	}
	return c.Repositories.Close(ctx)
}

func buildServices(cfg config.Config, reg repositories.Registry, collab Collaborators) (Services, error) {
	var svc Services

	clock := collab.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := collab.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	promotionSvc, err := services.NewPromotionService(services.PromotionServiceDeps{
		Promotions: reg.Promotions(),
		Clock:      clock,
		Logger:     serviceLogger(logger.Named("promotions")),
	})
	if err != nil {
		return Services{}, fmt.Errorf("build promotion service: %w", err)
	}
	svc.Promotions = promotionSvc

	fulfillmentSvc, err := services.NewFulfillmentService(services.FulfillmentServiceDeps{
		Orders:        reg.Orders(),
		Courier:       collab.Courier,
		Mailer:        collab.Mailer,
		Templates:     collab.Templates,
		Invoices:      collab.Invoices,
		Events:        collab.Events,
		OpsRecipients: cfg.Mail.OpsRecipients,
		Clock:         clock,
		Logger:        serviceLogger(logger.Named("fulfillment")),
	})
	if err != nil {
		return Services{}, fmt.Errorf("build fulfillment service: %w", err)
	}

	paymentSvc, err := services.NewPaymentService(services.PaymentServiceDeps{
		Orders:      reg.Orders(),
		Events:      reg.WebhookEvents(),
		Verifier:    collab.WebhookVerifier,
		Fulfillment: fulfillmentSvc,
		Clock:       clock,
		Logger:      serviceLogger(logger.Named("webhooks")),
	})
	if err != nil {
		return Services{}, fmt.Errorf("build payment service: %w", err)
	}
	svc.Payments = paymentSvc

	checkoutSvc, err := services.NewCheckoutService(services.CheckoutServiceDeps{
		Orders:      reg.Orders(),
		Products:    reg.Products(),
		Promotions:  promotionSvc,
		Payments:    collab.Payments,
		Fulfillment: fulfillmentSvc,
		Events:      collab.Events,
		Users:       reg.Users(),
		Pricing: services.CheckoutPricing{
			ShippingFeeMinor:           cfg.Shipping.FeeMinor,
			FreeShippingThresholdMinor: cfg.Shipping.FreeShippingThresholdMinor,
			Currency:                   cfg.Shipping.Currency,
		},
		CODLimit:     cfg.COD.LimitMinor,
		PhonePattern: cfg.COD.PhonePattern,
		SuccessURL:   cfg.Checkout.SuccessURL,
		CancelURL:    cfg.Checkout.CancelURL,
		Clock:        clock,
		Logger:       serviceLogger(logger.Named("checkout")),
	})
	if err != nil {
		return Services{}, fmt.Errorf("build checkout service: %w", err)
	}
	svc.Checkout = checkoutSvc

	orderSvc, err := services.NewOrderService(services.OrderServiceDeps{
		Orders: reg.Orders(),
		Logger: serviceLogger(logger.Named("orders")),
	})
	if err != nil {
		return Services{}, fmt.Errorf("build order service: %w", err)
	}
	svc.Orders = orderSvc

	if healthRepo := reg.Health(); healthRepo != nil {
		systemSvc, err := services.NewSystemService(services.SystemServiceDeps{
			HealthRepository: healthRepo,
			Clock:            clock,
		})
		if err != nil {
			return Services{}, fmt.Errorf("build system service: %w", err)
		}
		svc.System = systemSvc
	}

	return svc, nil
}

func serviceLogger(logger *zap.Logger) services.Logger {
	if logger == nil {
		return nil
	}
	return func(_ context.Context, event string, fields map[string]any) {
		zFields := make([]zap.Field, 0, len(fields))
		for k, v := range fields {
			zFields = append(zFields, zap.Any(k, v))
		}
		logger.Info(event, zFields...)
	}
}
