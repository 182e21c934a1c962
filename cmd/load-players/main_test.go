package main

import (
	"context"
	"io"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"two-truths/internal/db"
	"two-truths/internal/game"
)

func newEngine(t *testing.T) *game.Engine {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return game.NewEngine(game.NewMemoryStore(), game.Options{Logger: logger})
}

func TestLoadRegistersAndJoins(t *testing.T) {
	ctx := context.Background()
	engine := newEngine(t)
	faker := gofakeit.New(11)

	_, err := engine.Players.Register(ctx, "host", game.Profile{Name: "Host"})
	require.NoError(t, err)
	room, err := engine.Rooms.CreateRoom(ctx, "host", "Offsite")
	require.NoError(t, err)

	records := []db.RosterRecord{
		{ID: "201", Name: faker.FirstName(), Surname: faker.LastName(), Position: faker.JobTitle()},
		{ID: "202", Name: faker.FirstName()},
	}
	loaded, err := load(ctx, engine, records, room.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, loaded)

	members, err := engine.Rooms.Members(ctx, room.ID)
	require.NoError(t, err)
	assert.Len(t, members, 3)

	player, err := engine.Players.Get(ctx, "201")
	require.NoError(t, err)
	assert.True(t, player.Registered)
	assert.Equal(t, records[0].Surname, player.Surname)
}

func TestLoadUnknownRoom(t *testing.T) {
	engine := newEngine(t)
	loaded, err := load(context.Background(), engine, []db.RosterRecord{{ID: "201", Name: "Ann"}}, 999999)
	assert.ErrorIs(t, err, game.ErrNotFound)
	assert.Zero(t, loaded)
}
