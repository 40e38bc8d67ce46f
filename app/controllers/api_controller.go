package controllers

import (
	"github.com/go-playground/validator/v10"

	"github.com/cardforgehq/cardforge/app/repository"
	"github.com/cardforgehq/cardforge/internal/pkg/checkout"
	"github.com/cardforgehq/cardforge/internal/pkg/credits"
	"github.com/cardforgehq/cardforge/internal/pkg/imagegen"
)

var validate = validator.New()

// API bundles the request handlers and their collaborators. Components whose
// configuration is absent are nil; the affected handlers answer with a
// not_configured error instead of taking the process down.
type API struct {
	checkout   *checkout.Service
	reconciler *checkout.Reconciler
	ledger     *credits.Ledger
	generator  *imagegen.Service
	uploads    imagegen.ObjectStore
	images     repository.ImageRepository

	publicBaseURL string
}

// NewAPI wires the handlers. Any collaborator may be nil.
func NewAPI(
	checkoutSvc *checkout.Service,
	reconciler *checkout.Reconciler,
	ledger *credits.Ledger,
	generator *imagegen.Service,
	uploads imagegen.ObjectStore,
	images repository.ImageRepository,
	publicBaseURL string,
) *API {
	return &API{
		checkout:      checkoutSvc,
		reconciler:    reconciler,
		ledger:        ledger,
		generator:     generator,
		uploads:       uploads,
		images:        images,
		publicBaseURL: publicBaseURL,
	}
}
