package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	templatedomain "github.com/invoicemonk/invoicemonk/internal/template/domain"
)

type createTemplatePayload struct {
	Name    string         `json:"name"`
	Layout  string         `json:"layout"`
	Options map[string]any `json:"options"`
}

func (s *Server) CreateTemplate(c *gin.Context) {
	businessID, ok := parseID(c, "business_id")
	if !ok {
		return
	}

	var payload createTemplatePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	template, err := s.templateSvc.Create(c.Request.Context(), businessID, templatedomain.CreateTemplateRequest{
		Name:    payload.Name,
		Layout:  payload.Layout,
		Options: payload.Options,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": template})
}

func (s *Server) ListTemplates(c *gin.Context) {
	businessID, ok := parseID(c, "business_id")
	if !ok {
		return
	}

	templates, err := s.templateSvc.List(c.Request.Context(), businessID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": templates})
}

func (s *Server) GetTemplate(c *gin.Context) {
	businessID, ok := parseID(c, "business_id")
	if !ok {
		return
	}
	templateID, ok := parseID(c, "template_id")
	if !ok {
		return
	}

	template, err := s.templateSvc.GetByID(c.Request.Context(), businessID, templateID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": template})
}
