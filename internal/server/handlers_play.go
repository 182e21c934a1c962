package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func (s *Server) handleSubmitFacts(c *gin.Context) {
	var uri roomURI
	if !bindURI(c, &uri) {
		return
	}
	var req factsRequest
	if !bindJSON(c, &req, factsMessages, "invalid facts") {
		return
	}
	ctx := c.Request.Context()
	sess := session(c)
	room, err := s.engine.Flow.RestoreRoom(ctx, sess, uri.ID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	next, err := s.engine.Flow.SubmitFacts(ctx, sess, room, req.Fact1, req.Fact2, req.Fact3)
	if err != nil {
		s.writeError(c, err)
		return
	}
	s.metrics.submissions.Inc()
	c.JSON(http.StatusCreated, s.roomStateView(next))
}

// handleTargets opens the guessing screen: everyone who submitted today
// and has not been guessed by the caller yet.
func (s *Server) handleTargets(c *gin.Context) {
	var uri roomURI
	if !bindURI(c, &uri) {
		return
	}
	state, err := s.engine.Flow.RestoreGuessing(c.Request.Context(), session(c), uri.ID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stateView(state))
}

func (s *Server) handleGuess(c *gin.Context) {
	var uri roomURI
	if !bindURI(c, &uri) {
		return
	}
	var req guessRequest
	if !bindJSON(c, &req, guessMessages, "invalid guess") {
		return
	}
	ctx := c.Request.Context()
	sess := session(c)
	guessing, err := s.engine.Flow.RestoreGuessing(ctx, sess, uri.ID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	next, result, err := s.engine.Flow.Guess(ctx, sess, guessing, req.TargetID, req.Statement)
	if err != nil {
		s.writeError(c, err)
		return
	}
	outcome := "false"
	if result.IsCorrect {
		outcome = "true"
	}
	s.metrics.guesses.WithLabelValues(outcome).Inc()
	s.log.WithFields(logrus.Fields{
		"room_id":   uri.ID,
		"player_id": sess.PlayerID,
		"target_id": result.TargetID,
		"correct":   result.IsCorrect,
	}).Debug("guess accepted")

	c.JSON(http.StatusCreated, gin.H{
		"result": gin.H{
			"target_id":  result.TargetID,
			"chosen":     result.Chosen,
			"is_correct": result.IsCorrect,
		},
		"state": stateView(next),
	})
}

func (s *Server) handleResults(c *gin.Context) {
	var uri roomURI
	if !bindURI(c, &uri) {
		return
	}
	state, err := s.engine.Flow.RestoreResults(c.Request.Context(), session(c), uri.ID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stateView(state))
}

// handleEvents lists the room journal, newest first, for members only.
func (s *Server) handleEvents(c *gin.Context) {
	var uri roomURI
	if !bindURI(c, &uri) {
		return
	}
	var query eventsQuery
	if !bindQuery(c, &query) {
		return
	}
	if query.Limit == 0 {
		query.Limit = defaultEventCap
	}
	ctx := c.Request.Context()
	if _, err := s.engine.Rooms.MemberRoom(ctx, session(c).PlayerID, uri.ID); err != nil {
		s.writeError(c, err)
		return
	}
	events, err := s.engine.Events(ctx, uri.ID, query.Limit)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"room_id": uri.ID, "events": eventsView(events)})
}
