package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type CreateClientRequest struct {
	Name    string
	Email   string
	TaxID   string
	Address string
}

type UpdateClientRequest struct {
	Name    *string
	Email   *string
	TaxID   *string
	Address *string
}

type Service interface {
	Create(ctx context.Context, businessID snowflake.ID, req CreateClientRequest) (Client, error)
	GetByID(ctx context.Context, businessID, id snowflake.ID) (Client, error)
	List(ctx context.Context, businessID snowflake.ID) ([]Client, error)
	Update(ctx context.Context, businessID, id snowflake.ID, req UpdateClientRequest) (Client, error)
	Delete(ctx context.Context, businessID, id snowflake.ID) error
}

var (
	ErrClientNotFound = errors.New("client_not_found")
	ErrNameMissing    = errors.New("client_name_required")
)
