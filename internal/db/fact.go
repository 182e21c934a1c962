package db

import "time"

// Fact holds one daily set. Fact3 is the false statement.
type Fact struct {
	ID        uint      `gorm:"primaryKey"`
	PlayerID  string    `gorm:"size:64;not null;uniqueIndex:idx_facts_player_room_date"`
	RoomID    int       `gorm:"not null;uniqueIndex:idx_facts_player_room_date;index:idx_facts_room_date"`
	Date      string    `gorm:"column:date;size:10;not null;uniqueIndex:idx_facts_player_room_date;index:idx_facts_room_date"`
	Fact1     string    `gorm:"column:fact1;size:280;not null"`
	Fact2     string    `gorm:"column:fact2;size:280;not null"`
	Fact3     string    `gorm:"column:fact3;size:280;not null"`
	CreatedAt time.Time `gorm:"not null"`
}
