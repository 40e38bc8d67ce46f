package checkout

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gofiber/fiber/v2/log"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/webhook"

	"github.com/cardforgehq/cardforge/app/models"
	"github.com/cardforgehq/cardforge/app/repository"
	"github.com/cardforgehq/cardforge/internal/pkg/apperr"
	"github.com/cardforgehq/cardforge/internal/pkg/credits"
)

// Provider is the payment provider name recorded on webhook events and
// transactions.
const Provider = "stripe"

const eventCheckoutCompleted = "checkout.session.completed"

// Reconciler applies asynchronous payment confirmations to the credit
// ledger. Exactly-once application rests on two independent guards: the
// intent is consumed with an atomic GETDEL, and every event is recorded under
// a unique provider event id so redeliveries are acknowledged without effect.
type Reconciler struct {
	webhookSecret string
	intents       IntentStore
	ledger        *credits.Ledger
	transactions  repository.TransactionRepository
	events        repository.WebhookEventRepository
}

// NewReconciler creates a webhook reconciler from injected collaborators.
func NewReconciler(
	webhookSecret string,
	intents IntentStore,
	ledger *credits.Ledger,
	transactions repository.TransactionRepository,
	events repository.WebhookEventRepository,
) *Reconciler {
	return &Reconciler{
		webhookSecret: webhookSecret,
		intents:       intents,
		ledger:        ledger,
		transactions:  transactions,
		events:        events,
	}
}

// Handle verifies and applies one webhook delivery. A nil return means the
// delivery must be acknowledged with 2xx so the provider stops redelivering.
func (r *Reconciler) Handle(ctx context.Context, payload []byte, signatureHeader string) error {
	event, err := webhook.ConstructEventWithOptions(payload, signatureHeader, r.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		// Fail closed: nothing is recorded and no credit is applied.
		return fmt.Errorf("%w: %v", apperr.ErrSignatureInvalid, err)
	}

	created, stored, err := r.events.CreateIfNotExists(&models.WebhookEvent{
		Provider:        Provider,
		ProviderEventID: event.ID,
		EventType:       string(event.Type),
		PayloadJSON:     string(payload),
		SignatureValid:  true,
	})
	if err != nil {
		return fmt.Errorf("%w: webhook event store: %v", apperr.ErrUpstreamUnavailable, err)
	}
	if !created && stored.ProcessedAt != nil {
		log.Infof("[Webhook] duplicate delivery of %s event %s, already applied", Provider, event.ID)
		return nil
	}

	if string(event.Type) != eventCheckoutCompleted {
		r.markProcessed(stored.ID, "")
		return nil
	}

	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil || session.ID == "" {
		r.markProcessed(stored.ID, "malformed checkout.session payload")
		return fmt.Errorf("%w: malformed checkout.session payload", apperr.ErrInvalidRequest)
	}

	intent, err := r.intents.Consume(ctx, session.ID)
	if err != nil {
		r.markProcessed(stored.ID, err.Error())
		return err
	}

	balance, err := r.ledger.Add(ctx, intent.UserID, int64(intent.Credits))
	if err != nil {
		// Intent is gone but nothing was credited; record the failure so the
		// provider's redelivery is investigable instead of silently dropped.
		r.markProcessed(stored.ID, err.Error())
		return err
	}

	amountPaid := session.AmountTotal
	if amountPaid == 0 {
		amountPaid = intent.AmountCents
	}
	if err := r.transactions.Create(&models.Transaction{
		UserID:           intent.UserID,
		SessionID:        session.ID,
		CreditsPurchased: intent.Credits,
		AmountPaid:       amountPaid,
	}); err != nil {
		// The credit is already applied; acknowledge the delivery and keep
		// the bookkeeping failure on the event record.
		log.Errorf("[Webhook] transaction record failed for session %s: %v", session.ID, err)
		r.markProcessed(stored.ID, fmt.Sprintf("transaction record failed: %v", err))
		return nil
	}

	r.markProcessed(stored.ID, "")
	log.Infof("[Webhook] user %s credited with %d credits (balance %d)", intent.UserID, intent.Credits, balance)
	return nil
}

func (r *Reconciler) markProcessed(eventID uint, processingError string) {
	if err := r.events.MarkProcessed(eventID, processingError); err != nil {
		log.Errorf("[Webhook] failed to mark event %d processed: %v", eventID, err)
	}
}
