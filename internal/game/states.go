package game

type Stage string

const (
	StageRegistration    Stage = "registration"
	StageRoomSelection   Stage = "room_selection"
	StageProfileSettings Stage = "profile_settings"
	StageRoom            Stage = "room"
	StageGuessing        Stage = "guessing"
	StageResults         Stage = "results"
)

// State is one screen of the game flow. The set of implementations is closed.
type State interface {
	Stage() Stage
	state()
}

// RoomScoped is a state bound to a room, which the player may leave for the
// room list.
type RoomScoped interface {
	State
	CurrentRoom() Room
}

type Registration struct {
	Seed Profile
}

type RoomSelection struct {
	Player Player
	Rooms  []Room
}

type ProfileSettings struct {
	Player Player
}

type InRoom struct {
	Player    Player
	Room      Room
	Date      string
	Submitted bool
	// Roster lists the players who submitted facts on Date.
	Roster  []Player
	Members []Player
}

// Target is a player open for guessing, with statements in display order.
type Target struct {
	Player     Player
	Statements []string
}

type Guessing struct {
	Player  Player
	Room    Room
	Date    string
	Targets []Target
}

type Results struct {
	Player      Player
	Room        Room
	Date        string
	Stats       Stats
	Breakdown   []FactStat
	Leaderboard []Standing
}

func (Registration) Stage() Stage    { return StageRegistration }
func (RoomSelection) Stage() Stage   { return StageRoomSelection }
func (ProfileSettings) Stage() Stage { return StageProfileSettings }
func (InRoom) Stage() Stage          { return StageRoom }
func (Guessing) Stage() Stage        { return StageGuessing }
func (Results) Stage() Stage         { return StageResults }

func (Registration) state()    {}
func (RoomSelection) state()   {}
func (ProfileSettings) state() {}
func (InRoom) state()          {}
func (Guessing) state()        {}
func (Results) state()         {}

func (s InRoom) CurrentRoom() Room  { return s.Room }
func (s Results) CurrentRoom() Room { return s.Room }

func (g Guessing) without(playerID string) Guessing {
	next := g
	next.Targets = make([]Target, 0, len(g.Targets))
	for _, t := range g.Targets {
		if t.Player.ID != playerID {
			next.Targets = append(next.Targets, t)
		}
	}
	return next
}

// Session is the explicit per-client context passed to every flow
// operation. It is not safe for concurrent use.
type Session struct {
	PlayerID string
	// Seed pre-fills the registration form from the identity provider.
	Seed Profile

	guessed map[guessKey]struct{}
}

func NewSession(playerID string, seed Profile) *Session {
	return &Session{
		PlayerID: playerID,
		Seed:     seed,
		guessed:  make(map[guessKey]struct{}),
	}
}

func (s *Session) markGuessed(roomID int, date, targetID string) {
	if s.guessed == nil {
		s.guessed = make(map[guessKey]struct{})
	}
	s.guessed[guessKey{guesserID: s.PlayerID, targetID: targetID, roomID: roomID, date: date}] = struct{}{}
}

func (s *Session) hasGuessed(roomID int, date, targetID string) bool {
	_, ok := s.guessed[guessKey{guesserID: s.PlayerID, targetID: targetID, roomID: roomID, date: date}]
	return ok
}
