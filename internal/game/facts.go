package game

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
)

// FactStore records the daily fact sets. A player submits at most one set
// per room and day; later submissions are rejected, never merged.
type FactStore struct {
	*deps
	rooms *Registry
}

// Submit stores f1 and f2 as the true statements and f3 as the false one.
func (f *FactStore) Submit(ctx context.Context, playerID string, roomID int, date, f1, f2, f3 string) (FactSet, error) {
	playerID, err := validatePlayerID(playerID)
	if err != nil {
		return FactSet{}, err
	}
	statements, err := validateStatements(f1, f2, f3)
	if err != nil {
		return FactSet{}, err
	}
	if _, err := f.rooms.MemberRoom(ctx, playerID, roomID); err != nil {
		return FactSet{}, err
	}
	facts := FactSet{
		PlayerID:  playerID,
		RoomID:    roomID,
		Date:      date,
		Fact1:     statements[0],
		Fact2:     statements[1],
		Fact3:     statements[2],
		CreatedAt: f.clock().UTC(),
	}
	logCtx := f.log.WithFields(logrus.Fields{"room_id": roomID, "player_id": playerID, "date": date})
	insert := func() error { return f.store.InsertFacts(ctx, facts) }
	committed := func() (bool, error) {
		stored, err := f.store.GetFacts(ctx, playerID, roomID, date)
		if err != nil {
			return false, err
		}
		return stored.Fact1 == facts.Fact1 && stored.Fact2 == facts.Fact2 && stored.Fact3 == facts.Fact3, nil
	}
	if err := retryInsert(ctx, f.retry, ErrDuplicateSubmission, insert, committed); err != nil {
		if errors.Is(err, ErrDuplicateSubmission) {
			logCtx.Debug("duplicate fact submission rejected")
		}
		return FactSet{}, err
	}
	logCtx.Info("facts submitted")
	f.events.record(ctx, roomID, playerID, EventFactsSubmitted, map[string]any{"date": date})
	return facts, nil
}

// ListSubmitted returns the players of a room who submitted facts on date,
// in submission order.
func (f *FactStore) ListSubmitted(ctx context.Context, roomID int, date string) ([]Submission, error) {
	return retryValue(ctx, f.retry, func() ([]Submission, error) {
		return f.store.ListFacts(ctx, roomID, date)
	})
}

func (f *FactStore) Get(ctx context.Context, playerID string, roomID int, date string) (FactSet, error) {
	return retryValue(ctx, f.retry, func() (FactSet, error) {
		return f.store.GetFacts(ctx, playerID, roomID, date)
	})
}

func (f *FactStore) HasSubmitted(ctx context.Context, playerID string, roomID int, date string) (bool, error) {
	_, err := f.Get(ctx, playerID, roomID, date)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return false, err
}
