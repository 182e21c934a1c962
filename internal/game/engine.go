package game

import (
	"context"
	"crypto/rand"
	"math/big"
	mrand "math/rand/v2"
	"time"

	"github.com/sirupsen/logrus"
)

type Options struct {
	Clock   func() time.Time
	RoomID  func() int
	Shuffle func([]string)
	Retry   RetryPolicy
	Logger  *logrus.Logger
}

// Engine wires the game components over a single Store.
type Engine struct {
	Players *Players
	Rooms   *Registry
	Facts   *FactStore
	Guesses *Ledger
	Scores  *Scoring
	Flow    *Controller

	deps *deps
}

type deps struct {
	store  Store
	clock  func() time.Time
	retry  RetryPolicy
	log    *logrus.Logger
	events *journal
}

func NewEngine(store Store, opts Options) *Engine {
	if store == nil {
		panic("game: store cannot be nil")
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.RoomID == nil {
		opts.RoomID = randomRoomID
	}
	if opts.Shuffle == nil {
		opts.Shuffle = shuffleStatements
	}
	if opts.Retry.Attempts <= 0 {
		opts.Retry = DefaultRetryPolicy()
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	d := &deps{
		store: store,
		clock: opts.Clock,
		retry: opts.Retry,
		log:   opts.Logger,
	}
	d.events = &journal{store: store, clock: opts.Clock, log: opts.Logger}

	players := &Players{deps: d}
	rooms := &Registry{deps: d, players: players, newRoomID: opts.RoomID}
	facts := &FactStore{deps: d, rooms: rooms}
	guesses := &Ledger{deps: d, facts: facts}
	scores := &Scoring{deps: d}
	return &Engine{
		Players: players,
		Rooms:   rooms,
		Facts:   facts,
		Guesses: guesses,
		Scores:  scores,
		Flow: &Controller{
			deps:    d,
			players: players,
			rooms:   rooms,
			facts:   facts,
			guesses: guesses,
			scores:  scores,
			shuffle: opts.Shuffle,
		},
		deps: d,
	}
}

// Today returns the date key of the current round.
func (e *Engine) Today() string {
	return e.Flow.today()
}

// Events returns the most recent journal entries of a room.
func (e *Engine) Events(ctx context.Context, roomID int, limit int) ([]Event, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	d := e.deps
	return retryValue(ctx, d.retry, func() ([]Event, error) {
		return d.store.ListEvents(ctx, roomID, limit)
	})
}

func randomRoomID() int {
	n, err := rand.Int(rand.Reader, big.NewInt(maxRoomID-minRoomID+1))
	if err != nil {
		return minRoomID + mrand.IntN(maxRoomID-minRoomID+1)
	}
	return minRoomID + int(n.Int64())
}

func shuffleStatements(statements []string) {
	mrand.Shuffle(len(statements), func(i, j int) {
		statements[i], statements[j] = statements[j], statements[i]
	})
}

// journal records activity entries after a successful mutation. A failed
// write is logged and does not undo the mutation it describes.
type journal struct {
	store Store
	clock func() time.Time
	log   *logrus.Logger
}

func (j *journal) record(ctx context.Context, roomID int, playerID, eventType string, payload map[string]any) {
	event := Event{
		RoomID:    roomID,
		PlayerID:  playerID,
		Type:      eventType,
		Payload:   payload,
		CreatedAt: j.clock().UTC(),
	}
	if err := j.store.AppendEvent(ctx, event); err != nil {
		j.log.WithError(err).WithFields(logrus.Fields{
			"room_id":    roomID,
			"player_id":  playerID,
			"event_type": eventType,
		}).Warn("failed to record room event")
	}
}
