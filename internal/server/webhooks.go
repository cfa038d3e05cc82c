package server

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	subscriptiondomain "github.com/invoicemonk/invoicemonk/internal/subscription/domain"
	"go.uber.org/zap"
)

type subscriptionWebhookPayload struct {
	EventID    string     `json:"event_id"`
	BusinessID string     `json:"business_id"`
	Tier       string     `json:"tier"`
	Status     string     `json:"status"`
	ProviderID string     `json:"provider_id"`
	PeriodEnd  *time.Time `json:"period_end"`
}

// SubscriptionWebhook ingests plan changes from the payment processor. The
// body is authenticated by HMAC signature, not by a user token.
func (s *Server) SubscriptionWebhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	if !s.validWebhookSignature(body, c.GetHeader("X-Webhook-Signature")) {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var payload subscriptionWebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	businessID, err := snowflake.ParseString(payload.BusinessID)
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	subscription, err := s.subscriptionSvc.ApplyWebhookEvent(c.Request.Context(), subscriptiondomain.WebhookEvent{
		EventID:    payload.EventID,
		BusinessID: businessID,
		Tier:       subscriptiondomain.Tier(payload.Tier),
		Status:     subscriptiondomain.Status(payload.Status),
		ProviderID: payload.ProviderID,
		PeriodEnd:  payload.PeriodEnd,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.log.Info("subscription webhook applied",
		zap.String("event_id", payload.EventID),
		zap.String("business_id", payload.BusinessID),
		zap.String("tier", payload.Tier),
	)
	c.JSON(http.StatusOK, gin.H{"data": subscription})
}

func (s *Server) validWebhookSignature(body []byte, signature string) bool {
	if s.cfg.WebhookSigningSecret == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(s.cfg.WebhookSigningSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
