package game

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
)

// Ledger records guesses. A guesser gets one guess per target, room and day.
type Ledger struct {
	*deps
	facts *FactStore
}

// RecordGuess scores chosen against the target's false statement and stores
// the guess. The uniqueness rule is enforced by the store, so two racing
// requests end with one row and one ErrAlreadyGuessed.
func (l *Ledger) RecordGuess(ctx context.Context, guesserID, targetID string, roomID int, date, chosen string) (GuessResult, error) {
	guesserID, err := validatePlayerID(guesserID)
	if err != nil {
		return GuessResult{}, err
	}
	targetID, err = validatePlayerID(targetID)
	if err != nil {
		return GuessResult{}, err
	}
	if guesserID == targetID {
		return GuessResult{}, invalid("you cannot guess your own facts")
	}
	chosen = NormalizeText(chosen)
	if chosen == "" {
		return GuessResult{}, invalid("statement is required")
	}

	guessed, err := l.HasGuessed(ctx, guesserID, targetID, roomID, date)
	if err != nil {
		return GuessResult{}, err
	}
	if guessed {
		return GuessResult{}, NewError(ErrAlreadyGuessed, "you already guessed this player today")
	}

	target, err := l.facts.Get(ctx, targetID, roomID, date)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return GuessResult{}, notFound("player has not submitted facts today")
		}
		return GuessResult{}, err
	}
	if !target.Contains(chosen) {
		return GuessResult{}, invalid("statement is not one of the player's facts")
	}

	guess := Guess{
		GuesserID: guesserID,
		TargetID:  targetID,
		RoomID:    roomID,
		Date:      date,
		Chosen:    chosen,
		IsCorrect: chosen == target.FalseStatement(),
		CreatedAt: l.clock().UTC(),
	}
	insert := func() error { return l.store.InsertGuess(ctx, guess) }
	committed := func() (bool, error) {
		stored, err := l.store.GetGuess(ctx, guesserID, targetID, roomID, date)
		if err != nil {
			return false, err
		}
		return stored.Chosen == guess.Chosen, nil
	}
	if err := retryInsert(ctx, l.retry, ErrAlreadyGuessed, insert, committed); err != nil {
		return GuessResult{}, err
	}
	l.log.WithFields(logrus.Fields{
		"room_id":    roomID,
		"guesser_id": guesserID,
		"target_id":  targetID,
		"correct":    guess.IsCorrect,
	}).Info("guess recorded")
	l.events.record(ctx, roomID, guesserID, EventGuessRecorded, map[string]any{
		"target_id": targetID,
		"correct":   guess.IsCorrect,
	})
	return GuessResult{TargetID: targetID, Chosen: chosen, IsCorrect: guess.IsCorrect}, nil
}

func (l *Ledger) HasGuessed(ctx context.Context, guesserID, targetID string, roomID int, date string) (bool, error) {
	_, err := retryValue(ctx, l.retry, func() (Guess, error) {
		return l.store.GetGuess(ctx, guesserID, targetID, roomID, date)
	})
	if err == nil {
		return true, nil
	}
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return false, err
}

// GuessedTargets returns the ids of the players guesser already guessed on date.
func (l *Ledger) GuessedTargets(ctx context.Context, guesserID string, roomID int, date string) (map[string]bool, error) {
	guesses, err := retryValue(ctx, l.retry, func() ([]Guess, error) {
		return l.store.GuessesBy(ctx, guesserID, roomID, date)
	})
	if err != nil {
		return nil, err
	}
	targets := make(map[string]bool, len(guesses))
	for _, guess := range guesses {
		targets[guess.TargetID] = true
	}
	return targets, nil
}
