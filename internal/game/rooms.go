package game

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
)

// Registry owns rooms and their memberships.
type Registry struct {
	*deps
	players   *Players
	newRoomID func() int
}

// CreateRoom opens a room owned by creatorID and makes the creator its first
// member. Id collisions are retried with a fresh id.
func (r *Registry) CreateRoom(ctx context.Context, creatorID, name string) (Room, error) {
	name, err := validateRoomName(name)
	if err != nil {
		return Room{}, err
	}
	creator, err := r.players.Registered(ctx, creatorID)
	if err != nil {
		return Room{}, err
	}
	logCtx := r.log.WithField("creator_id", creator.ID)

	attempt := 0
	room, err := retry(ctx, r.retry, func(err error) bool {
		return transient(err) || errors.Is(err, ErrConflict)
	}, func() (Room, error) {
		attempt++
		room := Room{
			ID:        r.newRoomID(),
			Name:      name,
			CreatedBy: creator.ID,
			Active:    true,
			CreatedAt: r.clock().UTC(),
		}
		if err := r.store.CreateRoom(ctx, room); err != nil {
			if errors.Is(err, ErrConflict) {
				logCtx.WithField("room_id", room.ID).Warnf("room id taken, retrying (attempt %d)", attempt)
			}
			return Room{}, err
		}
		return room, nil
	})
	if err != nil {
		if errors.Is(err, ErrConflict) {
			return Room{}, NewError(ErrConflict, "could not allocate a room id, try again")
		}
		return Room{}, err
	}
	logCtx.WithField("room_id", room.ID).Info("room created")
	r.events.record(ctx, room.ID, creator.ID, EventRoomCreated, map[string]any{"name": room.Name})
	return room, nil
}

// JoinRoom adds the player to an active room, reactivating a previous
// membership when there is one.
func (r *Registry) JoinRoom(ctx context.Context, playerID string, roomID int) (Room, error) {
	player, err := r.players.Registered(ctx, playerID)
	if err != nil {
		return Room{}, err
	}
	room, err := r.activeRoom(ctx, roomID)
	if err != nil {
		return Room{}, err
	}
	member, err := retryValue(ctx, r.retry, func() (Membership, error) {
		return r.store.GetMembership(ctx, room.ID, player.ID)
	})
	switch {
	case err == nil && member.Active:
		return room, nil
	case err != nil && !errors.Is(err, ErrNotFound):
		return Room{}, err
	}
	if err := retryErr(ctx, r.retry, func() error {
		return r.store.UpsertMembership(ctx, room.ID, player.ID)
	}); err != nil {
		return Room{}, err
	}
	r.log.WithFields(logrus.Fields{"room_id": room.ID, "player_id": player.ID}).Info("player joined room")
	r.events.record(ctx, room.ID, player.ID, EventMemberJoined, map[string]any{"player": player.DisplayName()})
	return room, nil
}

// LeaveRoom hides the room from the player's list. Facts and guesses are kept.
func (r *Registry) LeaveRoom(ctx context.Context, playerID string, roomID int) error {
	playerID, err := validatePlayerID(playerID)
	if err != nil {
		return err
	}
	member, err := retryValue(ctx, r.retry, func() (Membership, error) {
		return r.store.GetMembership(ctx, roomID, playerID)
	})
	if err != nil {
		return err
	}
	if !member.Active {
		return nil
	}
	if err := retryErr(ctx, r.retry, func() error {
		return r.store.DeactivateMembership(ctx, roomID, playerID)
	}); err != nil {
		return err
	}
	r.log.WithFields(logrus.Fields{"room_id": roomID, "player_id": playerID}).Info("player left room")
	r.events.record(ctx, roomID, playerID, EventMemberLeft, nil)
	return nil
}

// CloseRoom deactivates a room. Only its creator may close it.
func (r *Registry) CloseRoom(ctx context.Context, playerID string, roomID int) error {
	room, err := r.Get(ctx, roomID)
	if err != nil {
		return err
	}
	if room.CreatedBy != playerID {
		return NewError(ErrForbidden, "only the room creator can close the room")
	}
	if !room.Active {
		return nil
	}
	if err := retryErr(ctx, r.retry, func() error {
		return r.store.SetRoomActive(ctx, roomID, false)
	}); err != nil {
		return err
	}
	r.log.WithField("room_id", roomID).Info("room closed")
	r.events.record(ctx, roomID, playerID, EventRoomClosed, nil)
	return nil
}

func (r *Registry) ListActiveRoomsFor(ctx context.Context, playerID string) ([]Room, error) {
	playerID, err := validatePlayerID(playerID)
	if err != nil {
		return nil, err
	}
	return retryValue(ctx, r.retry, func() ([]Room, error) {
		return r.store.ActiveRoomsFor(ctx, playerID)
	})
}

func (r *Registry) Members(ctx context.Context, roomID int) ([]Player, error) {
	return retryValue(ctx, r.retry, func() ([]Player, error) {
		return r.store.ActiveMembers(ctx, roomID)
	})
}

func (r *Registry) Get(ctx context.Context, roomID int) (Room, error) {
	if err := validateRoomID(roomID); err != nil {
		return Room{}, err
	}
	return retryValue(ctx, r.retry, func() (Room, error) {
		return r.store.GetRoom(ctx, roomID)
	})
}

// MemberRoom returns the room when both the room and the player's membership
// are active.
func (r *Registry) MemberRoom(ctx context.Context, playerID string, roomID int) (Room, error) {
	room, err := r.activeRoom(ctx, roomID)
	if err != nil {
		return Room{}, err
	}
	member, err := retryValue(ctx, r.retry, func() (Membership, error) {
		return r.store.GetMembership(ctx, roomID, playerID)
	})
	if err != nil {
		return Room{}, err
	}
	if !member.Active {
		return Room{}, notFound("you are not a member of room %d", roomID)
	}
	return room, nil
}

func (r *Registry) activeRoom(ctx context.Context, roomID int) (Room, error) {
	room, err := r.Get(ctx, roomID)
	if err != nil {
		return Room{}, err
	}
	if !room.Active {
		return Room{}, notFound("room %d not found or inactive", roomID)
	}
	return room, nil
}
