package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type CreateBusinessRequest struct {
	LegalName    string
	TaxID        string
	Address      string
	Jurisdiction string
	Email        string
	Currency     string
}

type UpdateBusinessRequest struct {
	LegalName *string
	TaxID     *string
	Address   *string
	Email     *string
	Currency  *string
}

type Service interface {
	Create(ctx context.Context, req CreateBusinessRequest) (Business, error)
	GetByID(ctx context.Context, id snowflake.ID) (Business, error)
	Update(ctx context.Context, id snowflake.ID, req UpdateBusinessRequest) (Business, error)
}

var (
	ErrBusinessNotFound = errors.New("business_not_found")
	ErrLegalNameMissing = errors.New("legal_name_required")
	ErrEmailMissing     = errors.New("email_required")
	ErrCurrencyLocked   = errors.New("currency_locked")
	ErrInvalidCurrency  = errors.New("invalid_currency")
)
