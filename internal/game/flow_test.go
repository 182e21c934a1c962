package game

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartUnknownPlayerGoesToRegistration(t *testing.T) {
	env := newTestEnv(t)
	sess := NewSession("alice", Profile{Name: "Alice", Surname: "Liddell"})

	state, err := env.engine.Flow.Start(env.ctx, sess)
	require.NoError(t, err)
	reg, ok := state.(Registration)
	require.True(t, ok, "got %T", state)
	assert.Equal(t, StageRegistration, reg.Stage())
	assert.Equal(t, "Alice", reg.Seed.Name)
}

func TestRegisterRequiresName(t *testing.T) {
	env := newTestEnv(t)
	sess := NewSession("alice", Profile{})
	flow := env.engine.Flow

	state, err := flow.Start(env.ctx, sess)
	require.NoError(t, err)

	_, err = flow.Register(env.ctx, sess, state.(Registration), Profile{Name: " "})
	assert.ErrorIs(t, err, ErrValidation)

	sel, err := flow.Register(env.ctx, sess, state.(Registration), Profile{Name: "Alice"})
	require.NoError(t, err)
	assert.Equal(t, "Alice", sel.Player.Name)
	assert.Empty(t, sel.Rooms)

	state, err = flow.Start(env.ctx, sess)
	require.NoError(t, err)
	assert.Equal(t, StageRoomSelection, state.Stage())
}

func TestProfileSettingsRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice")
	sess := NewSession("alice", Profile{})
	flow := env.engine.Flow

	sel, err := flow.RestoreRoomSelection(env.ctx, sess)
	require.NoError(t, err)
	settings, err := flow.OpenProfile(env.ctx, sess, sel)
	require.NoError(t, err)

	sel, err = flow.SaveProfile(env.ctx, sess, settings, Profile{Name: "Alice", Position: "Engineer"})
	require.NoError(t, err)
	assert.Equal(t, "Engineer", sel.Player.Position)

	settings, err = flow.OpenProfile(env.ctx, sess, sel)
	require.NoError(t, err)
	_, err = flow.CloseProfile(env.ctx, sess, settings)
	require.NoError(t, err)
}

func TestGuessingRequiresOwnSubmission(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice")
	sess := NewSession("alice", Profile{})
	flow := env.engine.Flow

	sel, err := flow.RestoreRoomSelection(env.ctx, sess)
	require.NoError(t, err)
	inRoom, err := flow.CreateRoom(env.ctx, sess, sel, "Team")
	require.NoError(t, err)
	assert.False(t, inRoom.Submitted)

	_, err = flow.StartGuessing(env.ctx, sess, inRoom)
	var transition *TransitionError
	require.True(t, errors.As(err, &transition), "got %v", err)
	assert.Equal(t, StageRoom, transition.From)
	assert.Equal(t, StageGuessing, transition.To)

	inRoom, err = flow.SubmitFacts(env.ctx, sess, inRoom, "a", "b", "c")
	require.NoError(t, err)
	assert.True(t, inRoom.Submitted)

	guessing, err := flow.StartGuessing(env.ctx, sess, inRoom)
	require.NoError(t, err)
	assert.Empty(t, guessing.Targets, "own facts are never a target")
}

func TestGuessingRosterExcludesSelfAndGuessed(t *testing.T) {
	env := newTestEnv(t)
	for _, id := range []string{"alice", "bob", "carol", "dave"} {
		env.register(t, id)
	}
	room := env.room(t, "alice")
	for _, id := range []string{"bob", "carol", "dave"} {
		env.join(t, id, room.ID)
	}
	env.submit(t, "alice", room.ID, "a1", "a2", "a3")
	env.submit(t, "bob", room.ID, "b1", "b2", "b3")
	env.submit(t, "carol", room.ID, "c1", "c2", "c3")

	// dave has no facts and never shows up
	_, err := env.engine.Guesses.RecordGuess(env.ctx, "alice", "bob", room.ID, env.date(), "b1")
	require.NoError(t, err)

	sess := NewSession("alice", Profile{})
	flow := env.engine.Flow
	guessing, err := flow.RestoreGuessing(env.ctx, sess, room.ID)
	require.NoError(t, err)
	require.Len(t, guessing.Targets, 1)
	target := guessing.Targets[0]
	assert.Equal(t, "carol", target.Player.ID)
	assert.ElementsMatch(t, []string{"c1", "c2", "c3"}, target.Statements)

	guessing, result, err := flow.Guess(env.ctx, sess, guessing, "carol", "c3")
	require.NoError(t, err)
	assert.True(t, result.IsCorrect)
	assert.Empty(t, guessing.Targets)

	_, _, err = flow.Guess(env.ctx, sess, guessing, "carol", "c1")
	assert.ErrorIs(t, err, ErrAlreadyGuessed)

	results, err := flow.Finish(env.ctx, sess, guessing)
	require.NoError(t, err)
	assert.Equal(t, Stats{Total: 2, Correct: 1, AccuracyPct: 50}, results.Stats)
	require.Len(t, results.Breakdown, 3)
	assert.Equal(t, "a3", results.Breakdown[2].Statement)
}

func TestSessionGuardSkipsTargetsGuessedInSession(t *testing.T) {
	env := newTestEnv(t)
	for _, id := range []string{"alice", "bob"} {
		env.register(t, id)
	}
	room := env.room(t, "alice")
	env.join(t, "bob", room.ID)
	env.submit(t, "alice", room.ID)
	env.submit(t, "bob", room.ID)

	sess := NewSession("alice", Profile{})
	sess.markGuessed(room.ID, env.date(), "bob")

	guessing, err := env.engine.Flow.RestoreGuessing(env.ctx, sess, room.ID)
	require.NoError(t, err)
	assert.Empty(t, guessing.Targets)
}

func TestStatementsAreShuffledForDisplay(t *testing.T) {
	env := newTestEnv(t)
	env.engine.Flow.shuffle = func(s []string) {
		s[0], s[2] = s[2], s[0]
	}
	for _, id := range []string{"alice", "bob"} {
		env.register(t, id)
	}
	room := env.room(t, "alice")
	env.join(t, "bob", room.ID)
	env.submit(t, "alice", room.ID, "one", "two", "three")
	env.submit(t, "bob", room.ID)

	guessing, err := env.engine.Flow.RestoreGuessing(env.ctx, NewSession("bob", Profile{}), room.ID)
	require.NoError(t, err)
	require.Len(t, guessing.Targets, 1)
	assert.Equal(t, []string{"three", "two", "one"}, guessing.Targets[0].Statements)

	facts, err := env.engine.Facts.Get(env.ctx, "alice", room.ID, env.date())
	require.NoError(t, err)
	assert.Equal(t, "three", facts.FalseStatement())
}

func TestChangeRoomFromRoomAndResults(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice")
	sess := NewSession("alice", Profile{})
	flow := env.engine.Flow

	sel, err := flow.RestoreRoomSelection(env.ctx, sess)
	require.NoError(t, err)
	inRoom, err := flow.CreateRoom(env.ctx, sess, sel, "Team")
	require.NoError(t, err)

	results, err := flow.ShowResults(env.ctx, sess, inRoom)
	require.NoError(t, err)
	assert.Equal(t, inRoom.Room.ID, results.CurrentRoom().ID)

	back, err := flow.ReturnToRoom(env.ctx, sess, results)
	require.NoError(t, err)
	assert.Equal(t, inRoom.Room.ID, back.Room.ID)

	for _, from := range []RoomScoped{inRoom, results} {
		sel, err = flow.ChangeRoom(env.ctx, sess, from)
		require.NoError(t, err)
		require.Len(t, sel.Rooms, 1)
	}

	sel, err = flow.LeaveRoom(env.ctx, sess, sel, inRoom.Room.ID)
	require.NoError(t, err)
	assert.Empty(t, sel.Rooms)

	inRoom, err = flow.EnterRoom(env.ctx, sess, sel, inRoom.Room.ID)
	require.NoError(t, err)
	require.Len(t, inRoom.Members, 1)
}

func TestStoreFailureAbortsTransition(t *testing.T) {
	flaky := newFlakyStore(100, "ListFacts")
	env := newTestEnvWithStore(t, flaky.MemoryStore, flaky)
	env.register(t, "alice")
	room := env.room(t, "alice")

	_, err := env.engine.Flow.RestoreRoom(env.ctx, NewSession("alice", Profile{}), room.ID)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}

func TestFlowRejectsMissingSession(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.engine.Flow.Start(env.ctx, nil)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = env.engine.Flow.RestoreRoomSelection(env.ctx, NewSession(" ", Profile{}))
	assert.ErrorIs(t, err, ErrValidation)
}
