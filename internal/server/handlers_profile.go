package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"two-truths/internal/game"
)

// handleMe resolves the screen a returning player lands on.
func (s *Server) handleMe(c *gin.Context) {
	state, err := s.engine.Flow.Start(c.Request.Context(), session(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stateView(state))
}

func (s *Server) handleRegister(c *gin.Context) {
	var req profileRequest
	if !bindJSON(c, &req, profileMessages, "invalid profile") {
		return
	}
	ctx := c.Request.Context()
	sess := session(c)
	state, err := s.engine.Flow.Start(ctx, sess)
	if err != nil {
		s.writeError(c, err)
		return
	}
	registration, ok := state.(game.Registration)
	if !ok {
		s.writeError(c, &game.TransitionError{
			From:   state.Stage(),
			To:     game.StageRoomSelection,
			Reason: "already registered",
		})
		return
	}
	next, err := s.engine.Flow.Register(ctx, sess, registration, req.profile())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, stateView(next))
}

func (s *Server) handleUpdateProfile(c *gin.Context) {
	var req profileRequest
	if !bindJSON(c, &req, profileMessages, "invalid profile") {
		return
	}
	ctx := c.Request.Context()
	sess := session(c)
	rooms, err := s.engine.Flow.RestoreRoomSelection(ctx, sess)
	if err != nil {
		s.writeError(c, err)
		return
	}
	settings, err := s.engine.Flow.OpenProfile(ctx, sess, rooms)
	if err != nil {
		s.writeError(c, err)
		return
	}
	next, err := s.engine.Flow.SaveProfile(ctx, sess, settings, req.profile())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stateView(next))
}
