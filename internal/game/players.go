package game

import (
	"context"

	"github.com/sirupsen/logrus"
)

type Players struct {
	*deps
}

// Register creates the player or refreshes an existing profile and marks it registered.
func (p *Players) Register(ctx context.Context, id string, profile Profile) (Player, error) {
	id, err := validatePlayerID(id)
	if err != nil {
		return Player{}, err
	}
	profile, err = validateProfile(profile)
	if err != nil {
		return Player{}, err
	}
	player := Player{
		ID:         id,
		Name:       profile.Name,
		Surname:    profile.Surname,
		Position:   profile.Position,
		Registered: true,
	}
	if err := retryErr(ctx, p.retry, func() error {
		return p.store.SavePlayer(ctx, player)
	}); err != nil {
		return Player{}, err
	}
	p.log.WithField("player_id", id).Info("player registered")
	return player, nil
}

func (p *Players) UpdateProfile(ctx context.Context, id string, profile Profile) (Player, error) {
	id, err := validatePlayerID(id)
	if err != nil {
		return Player{}, err
	}
	profile, err = validateProfile(profile)
	if err != nil {
		return Player{}, err
	}
	player := Player{ID: id, Name: profile.Name, Surname: profile.Surname, Position: profile.Position}
	if err := retryErr(ctx, p.retry, func() error {
		return p.store.UpdatePlayer(ctx, player)
	}); err != nil {
		return Player{}, err
	}
	p.log.WithFields(logrus.Fields{"player_id": id}).Debug("profile updated")
	return p.Get(ctx, id)
}

func (p *Players) Get(ctx context.Context, id string) (Player, error) {
	id, err := validatePlayerID(id)
	if err != nil {
		return Player{}, err
	}
	return retryValue(ctx, p.retry, func() (Player, error) {
		return p.store.GetPlayer(ctx, id)
	})
}

// Registered returns the player when they completed registration and
// ErrNotFound otherwise.
func (p *Players) Registered(ctx context.Context, id string) (Player, error) {
	player, err := p.Get(ctx, id)
	if err != nil {
		return Player{}, err
	}
	if !player.Registered {
		return Player{}, notFound("player %s is not registered", id)
	}
	return player, nil
}
