package game

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

var testDay = time.Date(2024, time.March, 14, 10, 30, 0, 0, time.UTC)

type testEnv struct {
	engine *Engine
	store  *MemoryStore
	faker  *gofakeit.Faker
	ctx    context.Context
	now    time.Time
}

// newTestEnv builds an engine over a fresh MemoryStore with a fixed clock,
// sequential room ids starting at 483920 and no statement shuffling.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithStore(t, NewMemoryStore(), nil)
}

func newTestEnvWithStore(t *testing.T, mem *MemoryStore, store Store) *testEnv {
	t.Helper()
	if store == nil {
		store = mem
	}
	env := &testEnv{store: mem, faker: gofakeit.New(7), ctx: context.Background(), now: testDay}
	nextID := 483920
	env.engine = NewEngine(store, Options{
		Clock: func() time.Time { return env.now },
		RoomID: func() int {
			id := nextID
			nextID++
			return id
		},
		Shuffle: func([]string) {},
		Retry:   RetryPolicy{Attempts: 3, InitialInterval: time.Millisecond, MaxInterval: 5 * time.Millisecond},
		Logger:  quietLogger(),
	})
	return env
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func (env *testEnv) date() string {
	return dateKey(env.now)
}

func (env *testEnv) register(t *testing.T, id string) Player {
	t.Helper()
	player, err := env.engine.Players.Register(env.ctx, id, Profile{
		Name:     env.faker.FirstName(),
		Surname:  env.faker.LastName(),
		Position: env.faker.JobTitle(),
	})
	require.NoError(t, err)
	return player
}

func (env *testEnv) room(t *testing.T, creatorID string) Room {
	t.Helper()
	room, err := env.engine.Rooms.CreateRoom(env.ctx, creatorID, env.faker.Sentence(2))
	require.NoError(t, err)
	return room
}

func (env *testEnv) join(t *testing.T, playerID string, roomID int) {
	t.Helper()
	_, err := env.engine.Rooms.JoinRoom(env.ctx, playerID, roomID)
	require.NoError(t, err)
}

func (env *testEnv) submit(t *testing.T, playerID string, roomID int, facts ...string) FactSet {
	t.Helper()
	if len(facts) == 0 {
		facts = []string{env.faker.Sentence(4), env.faker.Sentence(5), env.faker.Sentence(6)}
	}
	require.Len(t, facts, 3)
	set, err := env.engine.Facts.Submit(env.ctx, playerID, roomID, env.date(), facts[0], facts[1], facts[2])
	require.NoError(t, err)
	return set
}

// flakyStore fails the first failures calls of the wrapped operations with a
// store-unavailable error.
type flakyStore struct {
	*MemoryStore

	mu       sync.Mutex
	failures int
	calls    int
	failOn   map[string]bool
}

func newFlakyStore(failures int, ops ...string) *flakyStore {
	failOn := make(map[string]bool, len(ops))
	for _, op := range ops {
		failOn[op] = true
	}
	return &flakyStore{MemoryStore: NewMemoryStore(), failures: failures, failOn: failOn}
}

func (s *flakyStore) fail(op string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.failOn[op] {
		return nil
	}
	s.calls++
	if s.calls <= s.failures {
		return Unavailable(errors.New("connection reset by peer"))
	}
	return nil
}

func (s *flakyStore) InsertFacts(ctx context.Context, facts FactSet) error {
	if err := s.fail("InsertFacts"); err != nil {
		return err
	}
	return s.MemoryStore.InsertFacts(ctx, facts)
}

func (s *flakyStore) GetRoom(ctx context.Context, id int) (Room, error) {
	if err := s.fail("GetRoom"); err != nil {
		return Room{}, err
	}
	return s.MemoryStore.GetRoom(ctx, id)
}

func (s *flakyStore) ListFacts(ctx context.Context, roomID int, date string) ([]Submission, error) {
	if err := s.fail("ListFacts"); err != nil {
		return nil, err
	}
	return s.MemoryStore.ListFacts(ctx, roomID, date)
}

func (s *flakyStore) AppendEvent(ctx context.Context, event Event) error {
	if err := s.fail("AppendEvent"); err != nil {
		return err
	}
	return s.MemoryStore.AppendEvent(ctx, event)
}

// lostReplyStore commits the first write of each insert and then reports
// the store as unavailable, as if the reply never reached the caller.
type lostReplyStore struct {
	*MemoryStore

	mu      sync.Mutex
	dropped map[string]bool
}

func newLostReplyStore() *lostReplyStore {
	return &lostReplyStore{MemoryStore: NewMemoryStore(), dropped: make(map[string]bool)}
}

func (s *lostReplyStore) dropReply(op string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dropped[op] {
		return nil
	}
	s.dropped[op] = true
	return Unavailable(errors.New("connection reset by peer"))
}

func (s *lostReplyStore) InsertFacts(ctx context.Context, facts FactSet) error {
	if err := s.MemoryStore.InsertFacts(ctx, facts); err != nil {
		return err
	}
	return s.dropReply("InsertFacts")
}

func (s *lostReplyStore) InsertGuess(ctx context.Context, guess Guess) error {
	if err := s.MemoryStore.InsertGuess(ctx, guess); err != nil {
		return err
	}
	return s.dropReply("InsertGuess")
}
