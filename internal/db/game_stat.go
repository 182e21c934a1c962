package db

import "time"

// GameStat is one guess: PlayerID picked ChosenFact from AimID's set.
type GameStat struct {
	ID         uint      `gorm:"primaryKey"`
	PlayerID   string    `gorm:"size:64;not null;uniqueIndex:idx_game_stats_guess"`
	AimID      string    `gorm:"size:64;not null;uniqueIndex:idx_game_stats_guess"`
	RoomID     int       `gorm:"not null;uniqueIndex:idx_game_stats_guess;index:idx_game_stats_room_date"`
	Date       string    `gorm:"column:date;size:10;not null;uniqueIndex:idx_game_stats_guess;index:idx_game_stats_room_date"`
	ChosenFact string    `gorm:"size:280;not null"`
	IsCorrect  bool      `gorm:"not null"`
	CreatedAt  time.Time `gorm:"not null"`
}
