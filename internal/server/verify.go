package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// VerifyRecord is unauthenticated: anyone holding a verification id can
// check a document without seeing its private contents.
func (s *Server) VerifyRecord(c *gin.Context) {
	result, err := s.verificationSvc.Lookup(c.Request.Context(), c.Param("verification_id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": result})
}
