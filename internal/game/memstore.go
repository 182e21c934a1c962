package game

import (
	"context"
	"sort"
	"sync"
	"time"
)

type memberKey struct {
	roomID   int
	playerID string
}

type factKey struct {
	playerID string
	roomID   int
	date     string
}

type guessKey struct {
	guesserID string
	targetID  string
	roomID    int
	date      string
}

// MemoryStore is a Store kept in process memory. It serves local runs
// without a database and the package tests.
type MemoryStore struct {
	mu          sync.Mutex
	players     map[string]Player
	rooms       map[int]Room
	members     map[memberKey]Membership
	memberOrder []memberKey
	facts       map[factKey]FactSet
	factOrder   []factKey
	guesses     map[guessKey]Guess
	guessOrder  []guessKey
	events      []Event
	nextEventID uint
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		players:     make(map[string]Player),
		rooms:       make(map[int]Room),
		members:     make(map[memberKey]Membership),
		facts:       make(map[factKey]FactSet),
		guesses:     make(map[guessKey]Guess),
		nextEventID: 1,
	}
}

func (s *MemoryStore) SavePlayer(_ context.Context, player Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	player.UpdatedAt = time.Now().UTC()
	s.players[player.ID] = player
	return nil
}

func (s *MemoryStore) UpdatePlayer(_ context.Context, player Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.players[player.ID]
	if !ok {
		return notFound("player %s not found", player.ID)
	}
	existing.Name = player.Name
	existing.Surname = player.Surname
	existing.Position = player.Position
	existing.UpdatedAt = time.Now().UTC()
	s.players[player.ID] = existing
	return nil
}

func (s *MemoryStore) GetPlayer(_ context.Context, id string) (Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	player, ok := s.players[id]
	if !ok {
		return Player{}, notFound("player %s not found", id)
	}
	return player, nil
}

func (s *MemoryStore) CreateRoom(_ context.Context, room Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.rooms[room.ID]; exists {
		return NewError(ErrConflict, "room %d already exists", room.ID)
	}
	if room.CreatedAt.IsZero() {
		room.CreatedAt = time.Now().UTC()
	}
	s.rooms[room.ID] = room
	s.putMember(memberKey{roomID: room.ID, playerID: room.CreatedBy}, true)
	return nil
}

func (s *MemoryStore) GetRoom(_ context.Context, id int) (Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[id]
	if !ok {
		return Room{}, notFound("room %d not found", id)
	}
	return room, nil
}

func (s *MemoryStore) SetRoomActive(_ context.Context, id int, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[id]
	if !ok {
		return notFound("room %d not found", id)
	}
	room.Active = active
	s.rooms[id] = room
	return nil
}

func (s *MemoryStore) UpsertMembership(_ context.Context, roomID int, playerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[roomID]; !ok {
		return notFound("room %d not found", roomID)
	}
	s.putMember(memberKey{roomID: roomID, playerID: playerID}, true)
	return nil
}

func (s *MemoryStore) putMember(key memberKey, active bool) {
	if _, exists := s.members[key]; !exists {
		s.memberOrder = append(s.memberOrder, key)
	}
	s.members[key] = Membership{RoomID: key.roomID, PlayerID: key.playerID, Active: active}
}

func (s *MemoryStore) DeactivateMembership(_ context.Context, roomID int, playerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := memberKey{roomID: roomID, playerID: playerID}
	if _, ok := s.members[key]; !ok {
		return notFound("membership in room %d not found", roomID)
	}
	s.putMember(key, false)
	return nil
}

func (s *MemoryStore) GetMembership(_ context.Context, roomID int, playerID string) (Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	member, ok := s.members[memberKey{roomID: roomID, playerID: playerID}]
	if !ok {
		return Membership{}, notFound("membership in room %d not found", roomID)
	}
	return member, nil
}

func (s *MemoryStore) ActiveRoomsFor(_ context.Context, playerID string) ([]Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var rooms []Room
	for _, key := range s.memberOrder {
		if key.playerID != playerID || !s.members[key].Active {
			continue
		}
		if room, ok := s.rooms[key.roomID]; ok && room.Active {
			rooms = append(rooms, room)
		}
	}
	sort.SliceStable(rooms, func(i, j int) bool {
		return rooms[i].CreatedAt.After(rooms[j].CreatedAt)
	})
	return rooms, nil
}

func (s *MemoryStore) ActiveMembers(_ context.Context, roomID int) ([]Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var players []Player
	for _, key := range s.memberOrder {
		if key.roomID != roomID || !s.members[key].Active {
			continue
		}
		if player, ok := s.players[key.playerID]; ok {
			players = append(players, player)
		}
	}
	sort.SliceStable(players, func(i, j int) bool {
		return players[i].Name < players[j].Name
	})
	return players, nil
}

func (s *MemoryStore) InsertFacts(_ context.Context, facts FactSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := factKey{playerID: facts.PlayerID, roomID: facts.RoomID, date: facts.Date}
	if _, exists := s.facts[key]; exists {
		return NewError(ErrDuplicateSubmission, "facts for %s are already submitted", facts.Date)
	}
	if facts.CreatedAt.IsZero() {
		facts.CreatedAt = time.Now().UTC()
	}
	s.facts[key] = facts
	s.factOrder = append(s.factOrder, key)
	return nil
}

func (s *MemoryStore) GetFacts(_ context.Context, playerID string, roomID int, date string) (FactSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	facts, ok := s.facts[factKey{playerID: playerID, roomID: roomID, date: date}]
	if !ok {
		return FactSet{}, notFound("no facts submitted for %s", date)
	}
	return facts, nil
}

func (s *MemoryStore) ListFacts(_ context.Context, roomID int, date string) ([]Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var list []Submission
	for _, key := range s.factOrder {
		if key.roomID != roomID || key.date != date {
			continue
		}
		player, ok := s.players[key.playerID]
		if !ok {
			continue
		}
		list = append(list, Submission{Player: player, Facts: s.facts[key]})
	}
	return list, nil
}

func (s *MemoryStore) InsertGuess(_ context.Context, guess Guess) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := guessKey{guesserID: guess.GuesserID, targetID: guess.TargetID, roomID: guess.RoomID, date: guess.Date}
	if _, exists := s.guesses[key]; exists {
		return NewError(ErrAlreadyGuessed, "you already guessed this player today")
	}
	if guess.CreatedAt.IsZero() {
		guess.CreatedAt = time.Now().UTC()
	}
	s.guesses[key] = guess
	s.guessOrder = append(s.guessOrder, key)
	return nil
}

func (s *MemoryStore) GetGuess(_ context.Context, guesserID, targetID string, roomID int, date string) (Guess, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	guess, ok := s.guesses[guessKey{guesserID: guesserID, targetID: targetID, roomID: roomID, date: date}]
	if !ok {
		return Guess{}, notFound("guess not found")
	}
	return guess, nil
}

func (s *MemoryStore) GuessesBy(_ context.Context, guesserID string, roomID int, date string) ([]Guess, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var list []Guess
	for _, key := range s.guessOrder {
		if key.guesserID == guesserID && key.roomID == roomID && key.date == date {
			list = append(list, s.guesses[key])
		}
	}
	return list, nil
}

func (s *MemoryStore) GuessesAgainst(_ context.Context, targetID string, roomID int, date string) ([]GuessView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var list []GuessView
	for _, key := range s.guessOrder {
		if key.targetID == targetID && key.roomID == roomID && key.date == date {
			list = append(list, s.viewLocked(s.guesses[key]))
		}
	}
	return list, nil
}

func (s *MemoryStore) RoomGuesses(_ context.Context, roomID int, date string) ([]GuessView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var list []GuessView
	for _, key := range s.guessOrder {
		if key.roomID == roomID && key.date == date {
			list = append(list, s.viewLocked(s.guesses[key]))
		}
	}
	return list, nil
}

func (s *MemoryStore) viewLocked(guess Guess) GuessView {
	view := GuessView{Guess: guess, GuesserName: "Unknown"}
	if player, ok := s.players[guess.GuesserID]; ok {
		view.GuesserName = player.DisplayName()
	}
	return view
}

func (s *MemoryStore) AppendEvent(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	event.ID = s.nextEventID
	s.nextEventID++
	s.events = append(s.events, event)
	return nil
}

func (s *MemoryStore) ListEvents(_ context.Context, roomID int, limit int) ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var list []Event
	for i := len(s.events) - 1; i >= 0 && (limit <= 0 || len(list) < limit); i-- {
		if s.events[i].RoomID == roomID {
			list = append(list, s.events[i])
		}
	}
	return list, nil
}
