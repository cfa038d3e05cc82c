package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type CreateTemplateRequest struct {
	Name    string
	Layout  string
	Options map[string]any
}

type Service interface {
	Create(ctx context.Context, businessID snowflake.ID, req CreateTemplateRequest) (InvoiceTemplate, error)
	GetByID(ctx context.Context, businessID, id snowflake.ID) (InvoiceTemplate, error)
	List(ctx context.Context, businessID snowflake.ID) ([]InvoiceTemplate, error)
}

var (
	ErrTemplateNotFound = errors.New("template_not_found")
	ErrNameMissing      = errors.New("template_name_required")
)
