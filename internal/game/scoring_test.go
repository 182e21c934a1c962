package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMyStatsWithoutGuesses(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice")
	room := env.room(t, "alice")

	stats, err := env.engine.Scores.MyStats(env.ctx, "alice", room.ID, env.date())
	require.NoError(t, err)
	assert.Equal(t, Stats{Total: 0, Correct: 0, AccuracyPct: 0}, stats)
}

func TestAccuracyRoundsToNearestPercent(t *testing.T) {
	assert.Equal(t, 0, accuracy(0, 0))
	assert.Equal(t, 33, accuracy(1, 3))
	assert.Equal(t, 67, accuracy(2, 3))
	assert.Equal(t, 50, accuracy(1, 2))
	assert.Equal(t, 100, accuracy(4, 4))
}

// Room 483920 is created by A, who submits three statements with the last
// one false. B guesses it correctly and cannot guess A again the same day.
func TestExampleRound(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "A")
	env.register(t, "B")
	room := env.room(t, "A")
	require.Equal(t, 483920, room.ID)
	env.join(t, "B", room.ID)

	env.submit(t, "A", room.ID, "plays guitar", "visited 5 countries", "knows 10 languages")
	env.submit(t, "B", room.ID)

	result, err := env.engine.Guesses.RecordGuess(env.ctx, "B", "A", room.ID, env.date(), "knows 10 languages")
	require.NoError(t, err)
	assert.True(t, result.IsCorrect)

	breakdown, err := env.engine.Scores.FactBreakdown(env.ctx, "A", room.ID, env.date())
	require.NoError(t, err)
	require.Len(t, breakdown, 3)
	falseFact := breakdown[2]
	assert.Equal(t, "knows 10 languages", falseFact.Statement)
	assert.True(t, falseFact.IsFalse)
	assert.Equal(t, 1, falseFact.TotalGuesses)
	assert.Equal(t, 1, falseFact.CorrectGuesses)
	require.Len(t, falseFact.Guesses, 1)
	player, err := env.engine.Players.Get(env.ctx, "B")
	require.NoError(t, err)
	assert.Equal(t, player.DisplayName(), falseFact.Guesses[0].GuesserName)
	assert.Equal(t, 0, breakdown[0].TotalGuesses)
	assert.Empty(t, breakdown[0].Guesses)

	stats, err := env.engine.Scores.MyStats(env.ctx, "B", room.ID, env.date())
	require.NoError(t, err)
	assert.Equal(t, Stats{Total: 1, Correct: 1, AccuracyPct: 100}, stats)

	_, err = env.engine.Guesses.RecordGuess(env.ctx, "B", "A", room.ID, env.date(), "plays guitar")
	assert.ErrorIs(t, err, ErrAlreadyGuessed)
}

func TestFactBreakdownTrueStatementsNeverCorrect(t *testing.T) {
	env := newTestEnv(t)
	for _, id := range []string{"alice", "bob", "carol"} {
		env.register(t, id)
	}
	room := env.room(t, "alice")
	env.join(t, "bob", room.ID)
	env.join(t, "carol", room.ID)
	env.submit(t, "alice", room.ID, "one", "two", "three")

	_, err := env.engine.Guesses.RecordGuess(env.ctx, "bob", "alice", room.ID, env.date(), "one")
	require.NoError(t, err)
	_, err = env.engine.Guesses.RecordGuess(env.ctx, "carol", "alice", room.ID, env.date(), "one")
	require.NoError(t, err)

	breakdown, err := env.engine.Scores.FactBreakdown(env.ctx, "alice", room.ID, env.date())
	require.NoError(t, err)
	assert.Equal(t, 2, breakdown[0].TotalGuesses)
	assert.Equal(t, 0, breakdown[0].CorrectGuesses)
	assert.False(t, breakdown[0].IsFalse)
}

func TestFactBreakdownWithoutFacts(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice")
	room := env.room(t, "alice")

	breakdown, err := env.engine.Scores.FactBreakdown(env.ctx, "alice", room.ID, env.date())
	require.NoError(t, err)
	assert.Empty(t, breakdown)
}

func TestLeaderboardOrdering(t *testing.T) {
	env := newTestEnv(t)
	ids := []string{"alice", "bob", "carol", "dave"}
	for _, id := range ids {
		env.register(t, id)
	}
	room := env.room(t, "alice")
	for _, id := range ids[1:] {
		env.join(t, id, room.ID)
	}
	env.submit(t, "alice", room.ID, "a1", "a2", "a3")
	env.submit(t, "bob", room.ID, "b1", "b2", "b3")

	guess := func(guesser, target, chosen string) {
		t.Helper()
		_, err := env.engine.Guesses.RecordGuess(env.ctx, guesser, target, room.ID, env.date(), chosen)
		require.NoError(t, err)
	}
	guess("carol", "alice", "a3")
	guess("carol", "bob", "b3")
	guess("dave", "alice", "a3")
	guess("dave", "bob", "b1")
	guess("alice", "bob", "b2")

	board, err := env.engine.Scores.Leaderboard(env.ctx, room.ID, env.date())
	require.NoError(t, err)
	require.Len(t, board, 3)
	assert.Equal(t, "carol", board[0].PlayerID)
	assert.Equal(t, Stats{Total: 2, Correct: 2, AccuracyPct: 100}, board[0].Stats)
	assert.Equal(t, "dave", board[1].PlayerID)
	assert.Equal(t, 50, board[1].AccuracyPct)
	assert.Equal(t, "alice", board[2].PlayerID)
	assert.Equal(t, 0, board[2].Correct)
}
