package game

import "time"

// DateLayout is the layout of the UTC calendar key that scopes facts and guesses.
const DateLayout = "2006-01-02"

const (
	minRoomID = 100000
	maxRoomID = 999999
)

type Profile struct {
	Name     string
	Surname  string
	Position string
}

type Player struct {
	ID         string
	Name       string
	Surname    string
	Position   string
	Registered bool
	UpdatedAt  time.Time
}

func (p Player) DisplayName() string {
	if p.Surname == "" {
		return p.Name
	}
	return p.Name + " " + p.Surname
}

func (p Player) Profile() Profile {
	return Profile{Name: p.Name, Surname: p.Surname, Position: p.Position}
}

type Room struct {
	ID        int
	Name      string
	CreatedBy string
	Active    bool
	CreatedAt time.Time
}

type Membership struct {
	RoomID   int
	PlayerID string
	Active   bool
}

// FactSet is one player's statements for a room and day. Fact3 is always
// the false one.
type FactSet struct {
	PlayerID  string
	RoomID    int
	Date      string
	Fact1     string
	Fact2     string
	Fact3     string
	CreatedAt time.Time
}

func (f FactSet) Statements() []string {
	return []string{f.Fact1, f.Fact2, f.Fact3}
}

func (f FactSet) FalseStatement() string {
	return f.Fact3
}

func (f FactSet) Contains(statement string) bool {
	for _, s := range f.Statements() {
		if s == statement {
			return true
		}
	}
	return false
}

type Submission struct {
	Player Player
	Facts  FactSet
}

type Guess struct {
	GuesserID string
	TargetID  string
	RoomID    int
	Date      string
	Chosen    string
	IsCorrect bool
	CreatedAt time.Time
}

// GuessView is a guess annotated with the guesser's display data.
type GuessView struct {
	Guess
	GuesserName string
}

type GuessResult struct {
	TargetID  string
	Chosen    string
	IsCorrect bool
}

const (
	EventRoomCreated    = "room_created"
	EventRoomClosed     = "room_closed"
	EventMemberJoined   = "member_joined"
	EventMemberLeft     = "member_left"
	EventFactsSubmitted = "facts_submitted"
	EventGuessRecorded  = "guess_recorded"
)

type Event struct {
	ID        uint
	RoomID    int
	PlayerID  string
	Type      string
	Payload   map[string]any
	CreatedAt time.Time
}

func dateKey(t time.Time) string {
	return t.UTC().Format(DateLayout)
}
