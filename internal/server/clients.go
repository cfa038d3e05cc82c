package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	clientdomain "github.com/invoicemonk/invoicemonk/internal/client/domain"
)

type createClientPayload struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	TaxID   string `json:"tax_id"`
	Address string `json:"address"`
}

func (s *Server) CreateClient(c *gin.Context) {
	businessID, ok := parseID(c, "business_id")
	if !ok {
		return
	}

	var payload createClientPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	client, err := s.clientSvc.Create(c.Request.Context(), businessID, clientdomain.CreateClientRequest{
		Name:    payload.Name,
		Email:   payload.Email,
		TaxID:   payload.TaxID,
		Address: payload.Address,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": client})
}

func (s *Server) ListClients(c *gin.Context) {
	businessID, ok := parseID(c, "business_id")
	if !ok {
		return
	}

	clients, err := s.clientSvc.List(c.Request.Context(), businessID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": clients})
}

func (s *Server) GetClient(c *gin.Context) {
	businessID, ok := parseID(c, "business_id")
	if !ok {
		return
	}
	clientID, ok := parseID(c, "client_id")
	if !ok {
		return
	}

	client, err := s.clientSvc.GetByID(c.Request.Context(), businessID, clientID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": client})
}

type updateClientPayload struct {
	Name    *string `json:"name"`
	Email   *string `json:"email"`
	TaxID   *string `json:"tax_id"`
	Address *string `json:"address"`
}

func (s *Server) UpdateClient(c *gin.Context) {
	businessID, ok := parseID(c, "business_id")
	if !ok {
		return
	}
	clientID, ok := parseID(c, "client_id")
	if !ok {
		return
	}

	var payload updateClientPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	client, err := s.clientSvc.Update(c.Request.Context(), businessID, clientID, clientdomain.UpdateClientRequest{
		Name:    payload.Name,
		Email:   payload.Email,
		TaxID:   payload.TaxID,
		Address: payload.Address,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": client})
}

func (s *Server) DeleteClient(c *gin.Context) {
	businessID, ok := parseID(c, "business_id")
	if !ok {
		return
	}
	clientID, ok := parseID(c, "client_id")
	if !ok {
		return
	}

	if err := s.clientSvc.Delete(c.Request.Context(), businessID, clientID); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
