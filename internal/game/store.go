package game

import "context"

// Store is the backing store consumed by the game core. Implementations must
// enforce the uniqueness rules themselves: InsertFacts returns
// ErrDuplicateSubmission, InsertGuess returns ErrAlreadyGuessed and CreateRoom
// returns ErrConflict when the key already exists. Infrastructure failures are
// reported as ErrStoreUnavailable.
type Store interface {
	SavePlayer(ctx context.Context, player Player) error
	UpdatePlayer(ctx context.Context, player Player) error
	GetPlayer(ctx context.Context, id string) (Player, error)

	// CreateRoom persists the room and an active membership for its creator.
	CreateRoom(ctx context.Context, room Room) error
	GetRoom(ctx context.Context, id int) (Room, error)
	SetRoomActive(ctx context.Context, id int, active bool) error
	// UpsertMembership creates an active membership or reactivates an existing one.
	UpsertMembership(ctx context.Context, roomID int, playerID string) error
	DeactivateMembership(ctx context.Context, roomID int, playerID string) error
	GetMembership(ctx context.Context, roomID int, playerID string) (Membership, error)
	ActiveRoomsFor(ctx context.Context, playerID string) ([]Room, error)
	ActiveMembers(ctx context.Context, roomID int) ([]Player, error)

	InsertFacts(ctx context.Context, facts FactSet) error
	GetFacts(ctx context.Context, playerID string, roomID int, date string) (FactSet, error)
	ListFacts(ctx context.Context, roomID int, date string) ([]Submission, error)

	InsertGuess(ctx context.Context, guess Guess) error
	GetGuess(ctx context.Context, guesserID, targetID string, roomID int, date string) (Guess, error)
	GuessesBy(ctx context.Context, guesserID string, roomID int, date string) ([]Guess, error)
	GuessesAgainst(ctx context.Context, targetID string, roomID int, date string) ([]GuessView, error)
	RoomGuesses(ctx context.Context, roomID int, date string) ([]GuessView, error)

	AppendEvent(ctx context.Context, event Event) error
	ListEvents(ctx context.Context, roomID int, limit int) ([]Event, error)
}
