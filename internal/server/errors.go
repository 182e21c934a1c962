package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"two-truths/internal/game"
)

var errUnauthorized = errors.New("authentication required")

// statusFor maps a game error to the HTTP status the shell expects.
func statusFor(err error) int {
	var transition *game.TransitionError
	switch {
	case errors.Is(err, errUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, game.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, game.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, game.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, game.ErrDuplicateSubmission),
		errors.Is(err, game.ErrAlreadyGuessed),
		errors.Is(err, game.ErrConflict),
		errors.As(err, &transition):
		return http.StatusConflict
	case errors.Is(err, game.ErrStoreUnavailable),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func errorCode(err error) string {
	var transition *game.TransitionError
	switch {
	case errors.Is(err, errUnauthorized):
		return "unauthorized"
	case errors.Is(err, game.ErrValidation):
		return "validation"
	case errors.Is(err, game.ErrForbidden):
		return "forbidden"
	case errors.Is(err, game.ErrNotFound):
		return "not_found"
	case errors.Is(err, game.ErrDuplicateSubmission):
		return "duplicate_submission"
	case errors.Is(err, game.ErrAlreadyGuessed):
		return "already_guessed"
	case errors.Is(err, game.ErrConflict):
		return "conflict"
	case errors.As(err, &transition):
		return "transition"
	case errors.Is(err, game.ErrStoreUnavailable), errors.Is(err, context.DeadlineExceeded):
		return "unavailable"
	default:
		return "internal"
	}
}

func (s *Server) writeError(c *gin.Context, err error) {
	status := statusFor(err)
	message := err.Error()
	if status >= http.StatusInternalServerError {
		s.log.WithFields(logrus.Fields{
			"request_id": c.GetString(requestIDKey),
			"path":       c.FullPath(),
		}).WithError(err).Error("request failed")
		if status == http.StatusInternalServerError {
			message = "internal error"
		} else {
			message = "service temporarily unavailable"
		}
	}
	body := gin.H{"error": message, "code": errorCode(err)}
	var transition *game.TransitionError
	if errors.As(err, &transition) {
		body["from"] = transition.From
		body["to"] = transition.To
	}
	c.AbortWithStatusJSON(status, body)
}
