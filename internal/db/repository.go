package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"two-truths/internal/game"
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

// Repository is the Postgres implementation of game.Store.
type Repository struct {
	db *gorm.DB
}

var _ game.Store = (*Repository)(nil)

func NewRepository(conn *gorm.DB) *Repository {
	return &Repository{db: conn}
}

func (r *Repository) SavePlayer(ctx context.Context, player game.Player) error {
	record := Player{
		ID:         player.ID,
		Name:       player.Name,
		Surname:    player.Surname,
		Position:   player.Position,
		Registered: player.Registered,
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "surname", "position", "registered", "updated_at"}),
	}).Create(&record).Error
	return translate(err, nil, "player %s", player.ID)
}

func (r *Repository) UpdatePlayer(ctx context.Context, player game.Player) error {
	result := r.db.WithContext(ctx).Model(&Player{}).
		Where("id = ?", player.ID).
		Updates(map[string]any{
			"name":       player.Name,
			"surname":    player.Surname,
			"position":   player.Position,
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return translate(result.Error, nil, "player %s", player.ID)
	}
	if result.RowsAffected == 0 {
		return game.NewError(game.ErrNotFound, "player %s not found", player.ID)
	}
	return nil
}

func (r *Repository) GetPlayer(ctx context.Context, id string) (game.Player, error) {
	var record Player
	if err := r.db.WithContext(ctx).First(&record, "id = ?", id).Error; err != nil {
		return game.Player{}, translate(err, nil, "player %s not found", id)
	}
	return record.toGame(), nil
}

// CreateRoom inserts the room and the creator's membership in one transaction.
func (r *Repository) CreateRoom(ctx context.Context, room game.Room) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		record := Room{
			ID:        room.ID,
			Name:      room.Name,
			CreatedBy: room.CreatedBy,
			IsActive:  room.Active,
			CreatedAt: room.CreatedAt,
		}
		if err := tx.Create(&record).Error; err != nil {
			return err
		}
		return upsertMember(tx, room.ID, room.CreatedBy)
	})
	return translate(err, game.ErrConflict, "room %d already exists", room.ID)
}

func (r *Repository) GetRoom(ctx context.Context, id int) (game.Room, error) {
	var record Room
	if err := r.db.WithContext(ctx).First(&record, "id = ?", id).Error; err != nil {
		return game.Room{}, translate(err, nil, "room %d not found", id)
	}
	return record.toGame(), nil
}

func (r *Repository) SetRoomActive(ctx context.Context, id int, active bool) error {
	result := r.db.WithContext(ctx).Model(&Room{}).Where("id = ?", id).Update("is_active", active)
	if result.Error != nil {
		return translate(result.Error, nil, "room %d", id)
	}
	if result.RowsAffected == 0 {
		return game.NewError(game.ErrNotFound, "room %d not found", id)
	}
	return nil
}

// UpsertMembership keeps a single row per room and player and reactivates
// it on rejoin.
func (r *Repository) UpsertMembership(ctx context.Context, roomID int, playerID string) error {
	err := upsertMember(r.db.WithContext(ctx), roomID, playerID)
	return translate(err, nil, "room %d not found", roomID)
}

func upsertMember(tx *gorm.DB, roomID int, playerID string) error {
	member := RoomMember{RoomID: roomID, UserID: playerID, IsActive: true}
	return tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "room_id"}, {Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"is_active":  true,
			"updated_at": time.Now().UTC(),
		}),
	}).Create(&member).Error
}

func (r *Repository) DeactivateMembership(ctx context.Context, roomID int, playerID string) error {
	result := r.db.WithContext(ctx).Model(&RoomMember{}).
		Where("room_id = ? AND user_id = ?", roomID, playerID).
		Updates(map[string]any{"is_active": false, "updated_at": time.Now().UTC()})
	if result.Error != nil {
		return translate(result.Error, nil, "membership in room %d", roomID)
	}
	if result.RowsAffected == 0 {
		return game.NewError(game.ErrNotFound, "membership in room %d not found", roomID)
	}
	return nil
}

func (r *Repository) GetMembership(ctx context.Context, roomID int, playerID string) (game.Membership, error) {
	var record RoomMember
	err := r.db.WithContext(ctx).First(&record, "room_id = ? AND user_id = ?", roomID, playerID).Error
	if err != nil {
		return game.Membership{}, translate(err, nil, "membership in room %d not found", roomID)
	}
	return game.Membership{RoomID: record.RoomID, PlayerID: record.UserID, Active: record.IsActive}, nil
}

func (r *Repository) ActiveRoomsFor(ctx context.Context, playerID string) ([]game.Room, error) {
	var records []Room
	err := r.db.WithContext(ctx).
		Select("rooms.*").
		Joins("JOIN room_members ON room_members.room_id = rooms.id").
		Where("room_members.user_id = ? AND room_members.is_active AND rooms.is_active", playerID).
		Order("rooms.created_at DESC").
		Find(&records).Error
	if err != nil {
		return nil, translate(err, nil, "rooms")
	}
	rooms := make([]game.Room, 0, len(records))
	for _, record := range records {
		rooms = append(rooms, record.toGame())
	}
	return rooms, nil
}

func (r *Repository) ActiveMembers(ctx context.Context, roomID int) ([]game.Player, error) {
	var records []Player
	err := r.db.WithContext(ctx).
		Select("players.*").
		Joins("JOIN room_members ON room_members.user_id = players.id").
		Where("room_members.room_id = ? AND room_members.is_active", roomID).
		Order("players.name, players.id").
		Find(&records).Error
	if err != nil {
		return nil, translate(err, nil, "members of room %d", roomID)
	}
	players := make([]game.Player, 0, len(records))
	for _, record := range records {
		players = append(players, record.toGame())
	}
	return players, nil
}

func (r *Repository) InsertFacts(ctx context.Context, facts game.FactSet) error {
	record := Fact{
		PlayerID:  facts.PlayerID,
		RoomID:    facts.RoomID,
		Date:      facts.Date,
		Fact1:     facts.Fact1,
		Fact2:     facts.Fact2,
		Fact3:     facts.Fact3,
		CreatedAt: facts.CreatedAt,
	}
	err := r.db.WithContext(ctx).Create(&record).Error
	return translate(err, game.ErrDuplicateSubmission, "facts for %s are already submitted", facts.Date)
}

func (r *Repository) GetFacts(ctx context.Context, playerID string, roomID int, date string) (game.FactSet, error) {
	var record Fact
	err := r.db.WithContext(ctx).
		First(&record, "player_id = ? AND room_id = ? AND date = ?", playerID, roomID, date).Error
	if err != nil {
		return game.FactSet{}, translate(err, nil, "no facts submitted for %s", date)
	}
	return record.toGame(), nil
}

type submissionRow struct {
	Fact
	PlayerName       string
	PlayerSurname    string
	PlayerPosition   string
	PlayerRegistered bool
}

func (r *Repository) ListFacts(ctx context.Context, roomID int, date string) ([]game.Submission, error) {
	var rows []submissionRow
	err := r.db.WithContext(ctx).
		Table("facts").
		Select("facts.*, players.name AS player_name, players.surname AS player_surname, " +
			"players.position AS player_position, players.registered AS player_registered").
		Joins("JOIN players ON players.id = facts.player_id").
		Where("facts.room_id = ? AND facts.date = ?", roomID, date).
		Order("facts.created_at, facts.id").
		Scan(&rows).Error
	if err != nil {
		return nil, translate(err, nil, "facts of room %d", roomID)
	}
	list := make([]game.Submission, 0, len(rows))
	for _, row := range rows {
		list = append(list, game.Submission{
			Player: game.Player{
				ID:         row.PlayerID,
				Name:       row.PlayerName,
				Surname:    row.PlayerSurname,
				Position:   row.PlayerPosition,
				Registered: row.PlayerRegistered,
			},
			Facts: row.Fact.toGame(),
		})
	}
	return list, nil
}

func (r *Repository) InsertGuess(ctx context.Context, guess game.Guess) error {
	record := GameStat{
		PlayerID:   guess.GuesserID,
		AimID:      guess.TargetID,
		RoomID:     guess.RoomID,
		Date:       guess.Date,
		ChosenFact: guess.Chosen,
		IsCorrect:  guess.IsCorrect,
		CreatedAt:  guess.CreatedAt,
	}
	err := r.db.WithContext(ctx).Create(&record).Error
	return translate(err, game.ErrAlreadyGuessed, "you already guessed this player today")
}

func (r *Repository) GetGuess(ctx context.Context, guesserID, targetID string, roomID int, date string) (game.Guess, error) {
	var record GameStat
	err := r.db.WithContext(ctx).
		First(&record, "player_id = ? AND aim_id = ? AND room_id = ? AND date = ?", guesserID, targetID, roomID, date).Error
	if err != nil {
		return game.Guess{}, translate(err, nil, "guess not found")
	}
	return record.toGame(), nil
}

func (r *Repository) GuessesBy(ctx context.Context, guesserID string, roomID int, date string) ([]game.Guess, error) {
	var records []GameStat
	err := r.db.WithContext(ctx).
		Where("player_id = ? AND room_id = ? AND date = ?", guesserID, roomID, date).
		Order("created_at, id").
		Find(&records).Error
	if err != nil {
		return nil, translate(err, nil, "guesses")
	}
	guesses := make([]game.Guess, 0, len(records))
	for _, record := range records {
		guesses = append(guesses, record.toGame())
	}
	return guesses, nil
}

type guessRow struct {
	GameStat
	GuesserName    string
	GuesserSurname string
}

func (r *Repository) GuessesAgainst(ctx context.Context, targetID string, roomID int, date string) ([]game.GuessView, error) {
	return r.guessViews(ctx, "game_stats.aim_id = ? AND game_stats.room_id = ? AND game_stats.date = ?", targetID, roomID, date)
}

func (r *Repository) RoomGuesses(ctx context.Context, roomID int, date string) ([]game.GuessView, error) {
	return r.guessViews(ctx, "game_stats.room_id = ? AND game_stats.date = ?", roomID, date)
}

func (r *Repository) guessViews(ctx context.Context, where string, args ...any) ([]game.GuessView, error) {
	var rows []guessRow
	err := r.db.WithContext(ctx).
		Table("game_stats").
		Select("game_stats.*, players.name AS guesser_name, players.surname AS guesser_surname").
		Joins("LEFT JOIN players ON players.id = game_stats.player_id").
		Where(where, args...).
		Order("game_stats.created_at, game_stats.id").
		Scan(&rows).Error
	if err != nil {
		return nil, translate(err, nil, "guesses")
	}
	views := make([]game.GuessView, 0, len(rows))
	for _, row := range rows {
		guesser := game.Player{Name: row.GuesserName, Surname: row.GuesserSurname}
		name := guesser.DisplayName()
		if name == "" {
			name = "Unknown"
		}
		views = append(views, game.GuessView{Guess: row.GameStat.toGame(), GuesserName: name})
	}
	return views, nil
}

func (r *Repository) AppendEvent(ctx context.Context, event game.Event) error {
	payload := event.Payload
	if payload == nil {
		payload = map[string]any{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode event payload: %w", err)
	}
	record := Event{
		RoomID:    event.RoomID,
		Type:      event.Type,
		Payload:   datatypes.JSON(data),
		CreatedAt: event.CreatedAt,
	}
	if event.PlayerID != "" {
		playerID := event.PlayerID
		record.PlayerID = &playerID
	}
	return translate(r.db.WithContext(ctx).Create(&record).Error, nil, "event")
}

func (r *Repository) ListEvents(ctx context.Context, roomID int, limit int) ([]game.Event, error) {
	var records []Event
	query := r.db.WithContext(ctx).Where("room_id = ?", roomID).Order("id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&records).Error; err != nil {
		return nil, translate(err, nil, "events of room %d", roomID)
	}
	events := make([]game.Event, 0, len(records))
	for _, record := range records {
		event := game.Event{
			ID:        record.ID,
			RoomID:    record.RoomID,
			Type:      record.Type,
			CreatedAt: record.CreatedAt,
		}
		if record.PlayerID != nil {
			event.PlayerID = *record.PlayerID
		}
		if len(record.Payload) > 0 {
			if err := json.Unmarshal(record.Payload, &event.Payload); err != nil {
				return nil, fmt.Errorf("decode event %d payload: %w", record.ID, err)
			}
		}
		events = append(events, event)
	}
	return events, nil
}

// translate maps a driver error onto the game error kinds. A missing row or
// a dangling reference is ErrNotFound, a unique violation is unique when the
// operation expects one, and anything else is an unavailable store.
func translate(err error, unique error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return game.NewError(game.ErrNotFound, format, args...)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolation:
			if unique != nil {
				return game.NewError(unique, format, args...)
			}
		case foreignKeyViolation:
			return game.NewError(game.ErrNotFound, "referenced record not found")
		}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return game.Unavailable(err)
}

func (p Player) toGame() game.Player {
	return game.Player{
		ID:         p.ID,
		Name:       p.Name,
		Surname:    p.Surname,
		Position:   p.Position,
		Registered: p.Registered,
		UpdatedAt:  p.UpdatedAt,
	}
}

func (r Room) toGame() game.Room {
	return game.Room{
		ID:        r.ID,
		Name:      r.Name,
		CreatedBy: r.CreatedBy,
		Active:    r.IsActive,
		CreatedAt: r.CreatedAt,
	}
}

func (f Fact) toGame() game.FactSet {
	return game.FactSet{
		PlayerID:  f.PlayerID,
		RoomID:    f.RoomID,
		Date:      f.Date,
		Fact1:     f.Fact1,
		Fact2:     f.Fact2,
		Fact3:     f.Fact3,
		CreatedAt: f.CreatedAt,
	}
}

func (g GameStat) toGame() game.Guess {
	return game.Guess{
		GuesserID: g.PlayerID,
		TargetID:  g.AimID,
		RoomID:    g.RoomID,
		Date:      g.Date,
		Chosen:    g.ChosenFact,
		IsCorrect: g.IsCorrect,
		CreatedAt: g.CreatedAt,
	}
}
