package server

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/skip2/go-qrcode"

	"two-truths/internal/game"
	"two-truths/internal/identity"
)

const qrSize = 256

// inviteURL points at the mini app with the room as its start parameter.
func (s *Server) inviteURL(roomID int) (string, error) {
	base := strings.TrimSpace(s.cfg.PublicURL)
	if base == "" {
		return "", game.NewError(game.ErrNotFound, "invite links are not configured")
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", game.NewError(game.ErrNotFound, "invite links are not configured")
	}
	query := u.Query()
	query.Set("startapp", identity.InviteParam(roomID))
	u.RawQuery = query.Encode()
	return u.String(), nil
}

// handleRoomQR renders the invite link as a PNG for members of the room.
func (s *Server) handleRoomQR(c *gin.Context) {
	var uri roomURI
	if !bindURI(c, &uri) {
		return
	}
	sess := session(c)
	if _, err := s.engine.Rooms.MemberRoom(c.Request.Context(), sess.PlayerID, uri.ID); err != nil {
		s.writeError(c, err)
		return
	}
	link, err := s.inviteURL(uri.ID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	png, err := qrcode.Encode(link, qrcode.Medium, qrSize)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.Header("Cache-Control", "private, max-age=3600")
	c.Data(http.StatusOK, "image/png", png)
}
