package handlers

import (
	"context"

	"gorm.io/gorm"

	"go-billing-pos/internal/auth"
	"go-billing-pos/internal/billing"
)

// Assistant answers free-form questions about the shop.
type Assistant interface {
	Ask(ctx context.Context, message string) (string, error)
}

// Deps are the collaborators the HTTP layer needs.
type Deps struct {
	Service           *billing.Service
	Queue             *billing.ReconcileQueue
	Issuer            *auth.TokenIssuer
	Assistant         Assistant // nil disables /api/ask
	AllowRegistration bool
	CORSOrigins       []string
}

// Handler serves the billing API.
type Handler struct {
	svc       *billing.Service
	queue     *billing.ReconcileQueue
	issuer    *auth.TokenIssuer
	assistant Assistant
	db        *gorm.DB
}

func New(d Deps) *Handler {
	return &Handler{
		svc:       d.Service,
		queue:     d.Queue,
		issuer:    d.Issuer,
		assistant: d.Assistant,
		db:        d.Service.DB(),
	}
}
