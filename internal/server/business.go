package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	businessdomain "github.com/invoicemonk/invoicemonk/internal/business/domain"
)

type createBusinessPayload struct {
	LegalName    string `json:"legal_name"`
	TaxID        string `json:"tax_id"`
	Address      string `json:"address"`
	Jurisdiction string `json:"jurisdiction"`
	Email        string `json:"email"`
	Currency     string `json:"currency"`
}

func (s *Server) CreateBusiness(c *gin.Context) {
	var payload createBusinessPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	business, err := s.businessSvc.Create(c.Request.Context(), businessdomain.CreateBusinessRequest{
		LegalName:    payload.LegalName,
		TaxID:        payload.TaxID,
		Address:      payload.Address,
		Jurisdiction: payload.Jurisdiction,
		Email:        payload.Email,
		Currency:     payload.Currency,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": business})
}

func (s *Server) GetBusiness(c *gin.Context) {
	businessID, ok := parseID(c, "business_id")
	if !ok {
		return
	}

	business, err := s.businessSvc.GetByID(c.Request.Context(), businessID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": business})
}

type updateBusinessPayload struct {
	LegalName *string `json:"legal_name"`
	TaxID     *string `json:"tax_id"`
	Address   *string `json:"address"`
	Email     *string `json:"email"`
	Currency  *string `json:"currency"`
}

func (s *Server) UpdateBusiness(c *gin.Context) {
	businessID, ok := parseID(c, "business_id")
	if !ok {
		return
	}

	var payload updateBusinessPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	business, err := s.businessSvc.Update(c.Request.Context(), businessID, businessdomain.UpdateBusinessRequest{
		LegalName: payload.LegalName,
		TaxID:     payload.TaxID,
		Address:   payload.Address,
		Email:     payload.Email,
		Currency:  payload.Currency,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": business})
}

func (s *Server) GetSubscription(c *gin.Context) {
	businessID, ok := parseID(c, "business_id")
	if !ok {
		return
	}

	subscription, err := s.subscriptionSvc.GetForBusiness(c.Request.Context(), businessID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": subscription})
}
