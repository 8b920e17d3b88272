package server

import (
	"errors"
	"net/http"

	accountdomain "github.com/smallbiznis/tandem/internal/account/domain"
	"github.com/gin-gonic/gin"
)

// InviteLanding backs the public invite link. A valid token shows who is
// inviting; everything else gets the same generic response so the page leaks
// nothing about whether a token ever existed.
func (s *Server) InviteLanding(c *gin.Context) {
	invite, err := s.inviteSvc.LookupByToken(c.Request.Context(), c.Query("token"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"valid": false})
		return
	}

	inviterName := ""
	inviter, err := s.accountSvc.Get(c.Request.Context(), invite.InviterID)
	if err != nil && !errors.Is(err, accountdomain.ErrNotFound) {
		AbortWithError(c, err)
		return
	}
	if inviter != nil {
		inviterName = inviter.DisplayName
	}

	c.JSON(http.StatusOK, gin.H{
		"valid": true,
		"inviter": gin.H{
			"display_name": inviterName,
		},
		"expires_at": invite.ExpiresAt,
	})
}
