package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupGuessRoom(t *testing.T) (*testEnv, Room) {
	t.Helper()
	env := newTestEnv(t)
	env.register(t, "alice")
	env.register(t, "bob")
	room := env.room(t, "alice")
	env.join(t, "bob", room.ID)
	env.submit(t, "alice", room.ID, "plays guitar", "visited 5 countries", "knows 10 languages")
	return env, room
}

func TestRecordGuessScoresAgainstFalseStatement(t *testing.T) {
	cases := []struct {
		chosen  string
		correct bool
	}{
		{chosen: "knows 10 languages", correct: true},
		{chosen: "plays guitar", correct: false},
		{chosen: "visited 5 countries", correct: false},
	}
	for _, tc := range cases {
		t.Run(tc.chosen, func(t *testing.T) {
			env, room := setupGuessRoom(t)
			result, err := env.engine.Guesses.RecordGuess(env.ctx, "bob", "alice", room.ID, env.date(), tc.chosen)
			require.NoError(t, err)
			assert.Equal(t, tc.correct, result.IsCorrect)
			assert.Equal(t, "alice", result.TargetID)
		})
	}
}

func TestSecondGuessSameDayIsRejected(t *testing.T) {
	env, room := setupGuessRoom(t)
	_, err := env.engine.Guesses.RecordGuess(env.ctx, "bob", "alice", room.ID, env.date(), "plays guitar")
	require.NoError(t, err)

	_, err = env.engine.Guesses.RecordGuess(env.ctx, "bob", "alice", room.ID, env.date(), "knows 10 languages")
	assert.ErrorIs(t, err, ErrAlreadyGuessed)

	guesses, err := env.store.GuessesBy(env.ctx, "bob", room.ID, env.date())
	require.NoError(t, err)
	require.Len(t, guesses, 1)
	assert.Equal(t, "plays guitar", guesses[0].Chosen)
	assert.False(t, guesses[0].IsCorrect)
}

func TestStoreRejectsRacingGuess(t *testing.T) {
	env, room := setupGuessRoom(t)
	guess := Guess{GuesserID: "bob", TargetID: "alice", RoomID: room.ID, Date: env.date(), Chosen: "plays guitar"}
	require.NoError(t, env.store.InsertGuess(env.ctx, guess))

	err := env.store.InsertGuess(env.ctx, guess)
	assert.ErrorIs(t, err, ErrAlreadyGuessed)
}

func TestRecordGuessRejectsInvalidInput(t *testing.T) {
	env, room := setupGuessRoom(t)
	env.submit(t, "bob", room.ID)

	_, err := env.engine.Guesses.RecordGuess(env.ctx, "alice", "alice", room.ID, env.date(), "plays guitar")
	assert.ErrorIs(t, err, ErrValidation, "self guess")

	_, err = env.engine.Guesses.RecordGuess(env.ctx, "bob", "alice", room.ID, env.date(), "  ")
	assert.ErrorIs(t, err, ErrValidation, "empty choice")

	_, err = env.engine.Guesses.RecordGuess(env.ctx, "bob", "alice", room.ID, env.date(), "owns a boat")
	assert.ErrorIs(t, err, ErrValidation, "statement from another set")

	_, err = env.engine.Guesses.RecordGuess(env.ctx, "alice", "carol", room.ID, env.date(), "anything")
	assert.ErrorIs(t, err, ErrNotFound, "target without facts")
}

func TestHasGuessedAndGuessedTargets(t *testing.T) {
	env, room := setupGuessRoom(t)

	guessed, err := env.engine.Guesses.HasGuessed(env.ctx, "bob", "alice", room.ID, env.date())
	require.NoError(t, err)
	assert.False(t, guessed)

	_, err = env.engine.Guesses.RecordGuess(env.ctx, "bob", "alice", room.ID, env.date(), "plays guitar")
	require.NoError(t, err)

	guessed, err = env.engine.Guesses.HasGuessed(env.ctx, "bob", "alice", room.ID, env.date())
	require.NoError(t, err)
	assert.True(t, guessed)

	targets, err := env.engine.Guesses.GuessedTargets(env.ctx, "bob", room.ID, env.date())
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"alice": true}, targets)

	// the guard is scoped to the day
	guessed, err = env.engine.Guesses.HasGuessed(env.ctx, "bob", "alice", room.ID, "2024-03-15")
	require.NoError(t, err)
	assert.False(t, guessed)
}

func TestRecordGuessSurvivesLostReply(t *testing.T) {
	lost := newLostReplyStore()
	env := newTestEnvWithStore(t, lost.MemoryStore, lost)
	env.register(t, "alice")
	env.register(t, "bob")
	room := env.room(t, "alice")
	env.join(t, "bob", room.ID)
	env.submit(t, "alice", room.ID, "plays guitar", "visited 5 countries", "knows 10 languages")

	result, err := env.engine.Guesses.RecordGuess(env.ctx, "bob", "alice", room.ID, env.date(), "knows 10 languages")
	require.NoError(t, err)
	assert.True(t, result.IsCorrect)

	_, err = env.engine.Guesses.RecordGuess(env.ctx, "bob", "alice", room.ID, env.date(), "plays guitar")
	assert.ErrorIs(t, err, ErrAlreadyGuessed)
}
