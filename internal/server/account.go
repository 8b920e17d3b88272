package server

import (
	"net/http"

	accountdomain "github.com/smallbiznis/tandem/internal/account/domain"
	"github.com/gin-gonic/gin"
)

func (s *Server) GetMe(c *gin.Context) {
	account, err := s.accountSvc.EnsureProfile(c.Request.Context(), s.userID(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, account)
}

type updateMeRequest struct {
	DisplayName string `json:"display_name"`
}

func (s *Server) UpdateMe(c *gin.Context) {
	var req updateMeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	account, err := s.accountSvc.UpdateDisplayName(c.Request.Context(), accountdomain.UpdateDisplayNameRequest{
		UserID:      s.userID(c),
		DisplayName: req.DisplayName,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, account)
}

func (s *Server) CompleteOnboarding(c *gin.Context) {
	account, err := s.accountSvc.CompleteOnboarding(c.Request.Context(), s.userID(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, account)
}
