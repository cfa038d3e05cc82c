package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	taxdomain "github.com/invoicemonk/invoicemonk/internal/tax/domain"
)

type registerTaxSchemaPayload struct {
	Jurisdiction string         `json:"jurisdiction"`
	Rates        map[string]any `json:"rates"`
}

func (s *Server) RegisterTaxSchema(c *gin.Context) {
	businessID, ok := parseID(c, "business_id")
	if !ok {
		return
	}

	var payload registerTaxSchemaPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	schema, err := s.taxSvc.Register(c.Request.Context(), businessID, taxdomain.RegisterSchemaRequest{
		Jurisdiction: payload.Jurisdiction,
		Rates:        payload.Rates,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": schema})
}
