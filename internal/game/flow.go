package game

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
)

// Controller moves a session between screens. Every transition takes the
// state it starts from, so an illegal move does not compile. On error the
// returned state is the zero value and the caller keeps the one it had.
type Controller struct {
	*deps
	players *Players
	rooms   *Registry
	facts   *FactStore
	guesses *Ledger
	scores  *Scoring
	shuffle func([]string)
}

func (c *Controller) today() string {
	return dateKey(c.clock())
}

func (c *Controller) trace(sess *Session, from, to Stage) {
	if sess == nil {
		return
	}
	c.log.WithFields(logrus.Fields{
		"player_id": sess.PlayerID,
		"from":      from,
		"to":        to,
	}).Debug("flow transition")
}

// Start resolves the first screen: registration for unknown players, the
// room list otherwise.
func (c *Controller) Start(ctx context.Context, sess *Session) (State, error) {
	if err := checkSession(sess); err != nil {
		return nil, err
	}
	player, err := c.players.Get(ctx, sess.PlayerID)
	switch {
	case errors.Is(err, ErrNotFound):
		return Registration{Seed: sess.Seed}, nil
	case err != nil:
		return nil, err
	case !player.Registered:
		return Registration{Seed: mergeSeed(player.Profile(), sess.Seed)}, nil
	}
	return c.roomSelection(ctx, player)
}

func (c *Controller) Register(ctx context.Context, sess *Session, _ Registration, profile Profile) (RoomSelection, error) {
	if err := checkSession(sess); err != nil {
		return RoomSelection{}, err
	}
	player, err := c.players.Register(ctx, sess.PlayerID, profile)
	if err != nil {
		return RoomSelection{}, err
	}
	c.trace(sess, StageRegistration, StageRoomSelection)
	return c.roomSelection(ctx, player)
}

func (c *Controller) OpenProfile(ctx context.Context, sess *Session, _ RoomSelection) (ProfileSettings, error) {
	player, err := c.player(ctx, sess)
	if err != nil {
		return ProfileSettings{}, err
	}
	c.trace(sess, StageRoomSelection, StageProfileSettings)
	return ProfileSettings{Player: player}, nil
}

func (c *Controller) SaveProfile(ctx context.Context, sess *Session, _ ProfileSettings, profile Profile) (RoomSelection, error) {
	if err := checkSession(sess); err != nil {
		return RoomSelection{}, err
	}
	player, err := c.players.UpdateProfile(ctx, sess.PlayerID, profile)
	if err != nil {
		return RoomSelection{}, err
	}
	c.trace(sess, StageProfileSettings, StageRoomSelection)
	return c.roomSelection(ctx, player)
}

func (c *Controller) CloseProfile(ctx context.Context, sess *Session, _ ProfileSettings) (RoomSelection, error) {
	c.trace(sess, StageProfileSettings, StageRoomSelection)
	return c.RestoreRoomSelection(ctx, sess)
}

func (c *Controller) CreateRoom(ctx context.Context, sess *Session, _ RoomSelection, name string) (InRoom, error) {
	player, err := c.player(ctx, sess)
	if err != nil {
		return InRoom{}, err
	}
	room, err := c.rooms.CreateRoom(ctx, player.ID, name)
	if err != nil {
		return InRoom{}, err
	}
	c.trace(sess, StageRoomSelection, StageRoom)
	return c.inRoom(ctx, player, room)
}

// EnterRoom joins the room when needed, which also reactivates a membership
// the player left earlier.
func (c *Controller) EnterRoom(ctx context.Context, sess *Session, _ RoomSelection, roomID int) (InRoom, error) {
	player, err := c.player(ctx, sess)
	if err != nil {
		return InRoom{}, err
	}
	room, err := c.rooms.JoinRoom(ctx, player.ID, roomID)
	if err != nil {
		return InRoom{}, err
	}
	c.trace(sess, StageRoomSelection, StageRoom)
	return c.inRoom(ctx, player, room)
}

func (c *Controller) LeaveRoom(ctx context.Context, sess *Session, _ RoomSelection, roomID int) (RoomSelection, error) {
	player, err := c.player(ctx, sess)
	if err != nil {
		return RoomSelection{}, err
	}
	if err := c.rooms.LeaveRoom(ctx, player.ID, roomID); err != nil {
		return RoomSelection{}, err
	}
	return c.roomSelection(ctx, player)
}

func (c *Controller) SubmitFacts(ctx context.Context, sess *Session, from InRoom, f1, f2, f3 string) (InRoom, error) {
	player, err := c.player(ctx, sess)
	if err != nil {
		return InRoom{}, err
	}
	if _, err := c.facts.Submit(ctx, player.ID, from.Room.ID, c.today(), f1, f2, f3); err != nil {
		return InRoom{}, err
	}
	return c.inRoom(ctx, player, from.Room)
}

// StartGuessing opens the roster once the player has contributed their own
// facts for today.
func (c *Controller) StartGuessing(ctx context.Context, sess *Session, from InRoom) (Guessing, error) {
	player, err := c.player(ctx, sess)
	if err != nil {
		return Guessing{}, err
	}
	room, err := c.rooms.MemberRoom(ctx, player.ID, from.Room.ID)
	if err != nil {
		return Guessing{}, err
	}
	date := c.today()
	submitted, err := c.facts.HasSubmitted(ctx, player.ID, room.ID, date)
	if err != nil {
		return Guessing{}, err
	}
	if !submitted {
		return Guessing{}, &TransitionError{
			From:   StageRoom,
			To:     StageGuessing,
			Reason: "submit your own facts first",
		}
	}
	c.trace(sess, StageRoom, StageGuessing)
	return c.guessing(ctx, sess, player, room, date)
}

// Guess records a pick against one target and drops that target from the
// roster.
func (c *Controller) Guess(ctx context.Context, sess *Session, from Guessing, targetID, statement string) (Guessing, GuessResult, error) {
	if err := checkSession(sess); err != nil {
		return Guessing{}, GuessResult{}, err
	}
	targetID = NormalizeText(targetID)
	if sess.hasGuessed(from.Room.ID, from.Date, targetID) {
		return Guessing{}, GuessResult{}, NewError(ErrAlreadyGuessed, "you already guessed this player today")
	}
	result, err := c.guesses.RecordGuess(ctx, sess.PlayerID, targetID, from.Room.ID, from.Date, statement)
	if errors.Is(err, ErrAlreadyGuessed) {
		sess.markGuessed(from.Room.ID, from.Date, targetID)
	}
	if err != nil {
		return Guessing{}, GuessResult{}, err
	}
	sess.markGuessed(from.Room.ID, from.Date, targetID)
	return from.without(targetID), result, nil
}

func (c *Controller) BackToRoom(ctx context.Context, sess *Session, from Guessing) (InRoom, error) {
	c.trace(sess, StageGuessing, StageRoom)
	return c.RestoreRoom(ctx, sess, from.Room.ID)
}

// Finish is always allowed, whatever is left on the roster.
func (c *Controller) Finish(ctx context.Context, sess *Session, from Guessing) (Results, error) {
	c.trace(sess, StageGuessing, StageResults)
	return c.RestoreResults(ctx, sess, from.Room.ID)
}

func (c *Controller) ShowResults(ctx context.Context, sess *Session, from InRoom) (Results, error) {
	c.trace(sess, StageRoom, StageResults)
	return c.RestoreResults(ctx, sess, from.Room.ID)
}

func (c *Controller) ReturnToRoom(ctx context.Context, sess *Session, from Results) (InRoom, error) {
	c.trace(sess, StageResults, StageRoom)
	return c.RestoreRoom(ctx, sess, from.Room.ID)
}

// ChangeRoom goes back to the room list from a room or its results.
func (c *Controller) ChangeRoom(ctx context.Context, sess *Session, from RoomScoped) (RoomSelection, error) {
	c.trace(sess, from.Stage(), StageRoomSelection)
	return c.RestoreRoomSelection(ctx, sess)
}

// RestoreRoomSelection rebuilds the room list for a registered player. The
// Restore functions let a stateless caller re-enter the flow at a screen
// after checking the same guards a transition would.
func (c *Controller) RestoreRoomSelection(ctx context.Context, sess *Session) (RoomSelection, error) {
	player, err := c.player(ctx, sess)
	if err != nil {
		return RoomSelection{}, err
	}
	return c.roomSelection(ctx, player)
}

func (c *Controller) RestoreRoom(ctx context.Context, sess *Session, roomID int) (InRoom, error) {
	player, err := c.player(ctx, sess)
	if err != nil {
		return InRoom{}, err
	}
	room, err := c.rooms.MemberRoom(ctx, player.ID, roomID)
	if err != nil {
		return InRoom{}, err
	}
	return c.inRoom(ctx, player, room)
}

func (c *Controller) RestoreGuessing(ctx context.Context, sess *Session, roomID int) (Guessing, error) {
	room, err := c.RestoreRoom(ctx, sess, roomID)
	if err != nil {
		return Guessing{}, err
	}
	return c.StartGuessing(ctx, sess, room)
}

func (c *Controller) RestoreResults(ctx context.Context, sess *Session, roomID int) (Results, error) {
	player, err := c.player(ctx, sess)
	if err != nil {
		return Results{}, err
	}
	room, err := c.rooms.MemberRoom(ctx, player.ID, roomID)
	if err != nil {
		return Results{}, err
	}
	date := c.today()
	stats, err := c.scores.MyStats(ctx, player.ID, room.ID, date)
	if err != nil {
		return Results{}, err
	}
	breakdown, err := c.scores.FactBreakdown(ctx, player.ID, room.ID, date)
	if err != nil {
		return Results{}, err
	}
	board, err := c.scores.Leaderboard(ctx, room.ID, date)
	if err != nil {
		return Results{}, err
	}
	return Results{
		Player:      player,
		Room:        room,
		Date:        date,
		Stats:       stats,
		Breakdown:   breakdown,
		Leaderboard: board,
	}, nil
}

func (c *Controller) player(ctx context.Context, sess *Session) (Player, error) {
	if err := checkSession(sess); err != nil {
		return Player{}, err
	}
	return c.players.Registered(ctx, sess.PlayerID)
}

func (c *Controller) roomSelection(ctx context.Context, player Player) (RoomSelection, error) {
	rooms, err := c.rooms.ListActiveRoomsFor(ctx, player.ID)
	if err != nil {
		return RoomSelection{}, err
	}
	return RoomSelection{Player: player, Rooms: rooms}, nil
}

func (c *Controller) inRoom(ctx context.Context, player Player, room Room) (InRoom, error) {
	date := c.today()
	submissions, err := c.facts.ListSubmitted(ctx, room.ID, date)
	if err != nil {
		return InRoom{}, err
	}
	members, err := c.rooms.Members(ctx, room.ID)
	if err != nil {
		return InRoom{}, err
	}
	state := InRoom{
		Player:  player,
		Room:    room,
		Date:    date,
		Roster:  make([]Player, 0, len(submissions)),
		Members: members,
	}
	for _, sub := range submissions {
		if sub.Player.ID == player.ID {
			state.Submitted = true
		}
		state.Roster = append(state.Roster, sub.Player)
	}
	return state, nil
}

// guessing builds the roster: everyone who submitted on date, except the
// player and anyone they already guessed, per the ledger or this session.
func (c *Controller) guessing(ctx context.Context, sess *Session, player Player, room Room, date string) (Guessing, error) {
	submissions, err := c.facts.ListSubmitted(ctx, room.ID, date)
	if err != nil {
		return Guessing{}, err
	}
	guessed, err := c.guesses.GuessedTargets(ctx, player.ID, room.ID, date)
	if err != nil {
		return Guessing{}, err
	}
	state := Guessing{Player: player, Room: room, Date: date, Targets: []Target{}}
	for _, sub := range submissions {
		id := sub.Player.ID
		if id == player.ID || guessed[id] || sess.hasGuessed(room.ID, date, id) {
			continue
		}
		statements := sub.Facts.Statements()
		c.shuffle(statements)
		state.Targets = append(state.Targets, Target{Player: sub.Player, Statements: statements})
	}
	return state, nil
}

func checkSession(sess *Session) error {
	if sess == nil {
		return invalid("session is required")
	}
	if _, err := validatePlayerID(sess.PlayerID); err != nil {
		return err
	}
	return nil
}

func mergeSeed(stored, seed Profile) Profile {
	if stored.Name == "" {
		stored.Name = seed.Name
	}
	if stored.Surname == "" {
		stored.Surname = seed.Surname
	}
	if stored.Position == "" {
		stored.Position = seed.Position
	}
	return stored
}
