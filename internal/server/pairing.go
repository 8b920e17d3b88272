package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

func (s *Server) CreateInvitation(c *gin.Context) {
	created, err := s.inviteSvc.Create(c.Request.Context(), s.userID(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (s *Server) RegenerateInvitation(c *gin.Context) {
	created, err := s.inviteSvc.Regenerate(c.Request.Context(), s.userID(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, created)
}

func (s *Server) CurrentInvitation(c *gin.Context) {
	active, err := s.inviteSvc.Active(c.Request.Context(), s.userID(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, active)
}

type redeemRequest struct {
	Value string `json:"value"`
}

func (s *Server) RedeemInvitation(c *gin.Context) {
	var req redeemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if strings.TrimSpace(req.Value) == "" {
		AbortWithError(c, newValidationError("value", "required", "code or token is required"))
		return
	}

	userID := s.userID(c)
	allowed, err := s.redeemLimiter.AllowRedeem(c.Request.Context(), userID)
	if err != nil {
		// Redis being down should not take redemption with it.
		allowed = true
	}
	s.obsMetrics.RecordRateLimit(c.Request.Context(), allowed)
	if !allowed {
		AbortWithError(c, ErrRateLimited)
		return
	}

	status, err := s.pairingSvc.Redeem(c.Request.Context(), userID, req.Value)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

func (s *Server) PairingStatus(c *gin.Context) {
	status, err := s.pairingSvc.Status(c.Request.Context(), s.userID(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

func (s *Server) Unlink(c *gin.Context) {
	if err := s.pairingSvc.Unlink(c.Request.Context(), s.userID(c)); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unlinked": true})
}
