package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"two-truths/internal/game"
)

func (s *Server) handleListRooms(c *gin.Context) {
	state, err := s.engine.Flow.RestoreRoomSelection(c.Request.Context(), session(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stateView(state))
}

func (s *Server) handleCreateRoom(c *gin.Context) {
	var req createRoomRequest
	if !bindJSON(c, &req, bindMessages{
		"Name": {"notblank": "room name is required"},
	}, "invalid room") {
		return
	}
	ctx := c.Request.Context()
	sess := session(c)
	rooms, err := s.engine.Flow.RestoreRoomSelection(ctx, sess)
	if err != nil {
		s.writeError(c, err)
		return
	}
	state, err := s.engine.Flow.CreateRoom(ctx, sess, rooms, req.Name)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, s.roomStateView(state))
}

func (s *Server) handleGetRoom(c *gin.Context) {
	var uri roomURI
	if !bindURI(c, &uri) {
		return
	}
	state, err := s.engine.Flow.RestoreRoom(c.Request.Context(), session(c), uri.ID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.roomStateView(state))
}

func (s *Server) handleJoinRoom(c *gin.Context) {
	var uri roomURI
	if !bindURI(c, &uri) {
		return
	}
	ctx := c.Request.Context()
	sess := session(c)
	rooms, err := s.engine.Flow.RestoreRoomSelection(ctx, sess)
	if err != nil {
		s.writeError(c, err)
		return
	}
	state, err := s.engine.Flow.EnterRoom(ctx, sess, rooms, uri.ID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.roomStateView(state))
}

func (s *Server) handleLeaveRoom(c *gin.Context) {
	var uri roomURI
	if !bindURI(c, &uri) {
		return
	}
	ctx := c.Request.Context()
	sess := session(c)
	rooms, err := s.engine.Flow.RestoreRoomSelection(ctx, sess)
	if err != nil {
		s.writeError(c, err)
		return
	}
	state, err := s.engine.Flow.LeaveRoom(ctx, sess, rooms, uri.ID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stateView(state))
}

// handleCloseRoom deactivates a room. Only its creator may do that.
func (s *Server) handleCloseRoom(c *gin.Context) {
	var uri roomURI
	if !bindURI(c, &uri) {
		return
	}
	ctx := c.Request.Context()
	sess := session(c)
	if err := s.engine.Rooms.CloseRoom(ctx, sess.PlayerID, uri.ID); err != nil {
		s.writeError(c, err)
		return
	}
	s.log.WithFields(logrus.Fields{
		"room_id":   uri.ID,
		"player_id": sess.PlayerID,
	}).Info("room closed")
	state, err := s.engine.Flow.RestoreRoomSelection(ctx, sess)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stateView(state))
}

func (s *Server) roomStateView(state game.InRoom) gin.H {
	view := stateView(state)
	if link, err := s.inviteURL(state.Room.ID); err == nil {
		view["invite_url"] = link
	}
	return view
}
