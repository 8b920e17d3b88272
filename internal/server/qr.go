package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	qrcode "github.com/skip2/go-qrcode"
)

// InvitationQR renders the caller's current invite URL as a PNG for the
// partner to scan.
func (s *Server) InvitationQR(c *gin.Context) {
	active, err := s.inviteSvc.Active(c.Request.Context(), s.userID(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	png, err := qrcode.Encode(active.URL, qrcode.Medium, 256)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}
