package checkout

import (
	"context"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2/log"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/client"

	"github.com/cardforgehq/cardforge/internal/pkg/apperr"
	"github.com/cardforgehq/cardforge/internal/pkg/env"
)

// PaymentClient is the slice of the payment provider API the session manager
// needs. The real implementation wraps the Stripe SDK; tests inject a fake.
type PaymentClient interface {
	NewCheckoutSession(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

type stripePaymentClient struct {
	api *client.API
}

// NewStripePaymentClient builds a payment client bound to the given secret key.
func NewStripePaymentClient(secretKey string) PaymentClient {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &stripePaymentClient{api: api}
}

func (c *stripePaymentClient) NewCheckoutSession(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	return c.api.CheckoutSessions.New(params)
}

// Config holds the checkout component settings.
type Config struct {
	SecretKey     string
	WebhookSecret string
	PublicBaseURL string
}

// ConfigFromEnv reads the checkout settings from the environment.
func ConfigFromEnv() Config {
	return Config{
		SecretKey:     env.GetEnv("STRIPE_SECRET_KEY", ""),
		WebhookSecret: env.GetEnv("STRIPE_WEBHOOK_SECRET", ""),
		PublicBaseURL: env.GetEnv("APP_PUBLIC_URL", ""),
	}
}

// IsEnabled reports whether session creation is configured.
func (c Config) IsEnabled() bool {
	return c.SecretKey != ""
}

// Service creates hosted checkout sessions and stashes the pending-purchase
// intent for the webhook reconciler.
type Service struct {
	payments PaymentClient
	intents  IntentStore
}

// NewService creates a checkout session manager from injected collaborators.
func NewService(payments PaymentClient, intents IntentStore) *Service {
	return &Service{payments: payments, intents: intents}
}

// CreateSession validates the package, opens a hosted checkout session with
// the provider and persists the intent keyed by the new session id. Two calls
// create two independent sessions; only the matching webhook consumes each
// intent. Returns the provider session id for the client-side redirect.
func (s *Service) CreateSession(ctx context.Context, userID, packageID, origin string) (string, error) {
	pkg, ok := GetPackage(packageID)
	if !ok {
		return "", fmt.Errorf("%w: unknown package %q", apperr.ErrInvalidRequest, packageID)
	}

	origin = strings.TrimRight(origin, "/")

	params := &stripe.CheckoutSessionParams{
		Params:             stripe.Params{Context: ctx},
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(string(stripe.CurrencyUSD)),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(fmt.Sprintf("%d Credits Package", pkg.Credits)),
					},
					UnitAmount: stripe.Int64(pkg.PriceCents),
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(origin + "/success?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:  stripe.String(origin + "/cancel"),
	}
	params.AddMetadata("userId", userID)
	params.AddMetadata("credits", fmt.Sprintf("%d", pkg.Credits))

	session, err := s.payments.NewCheckoutSession(params)
	if err != nil {
		return "", fmt.Errorf("%w: create checkout session: %v", apperr.ErrUpstreamUnavailable, err)
	}

	intent := Intent{UserID: userID, Credits: pkg.Credits, AmountCents: pkg.PriceCents}
	if err := s.intents.Put(ctx, session.ID, intent); err != nil {
		// The session exists at the provider but we cannot reconcile its
		// webhook without the intent; surface the failure so the user retries.
		return "", err
	}

	log.Infof("[Checkout] session %s created for user %s (%s, %d credits)", session.ID, userID, pkg.ID, pkg.Credits)
	return session.ID, nil
}
