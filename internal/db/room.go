package db

import "time"

type Room struct {
	ID        int       `gorm:"primaryKey;autoIncrement:false"`
	Name      string    `gorm:"size:64;not null"`
	CreatedBy string    `gorm:"size:64;not null;index"`
	IsActive  bool      `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
}

type RoomMember struct {
	ID        uint      `gorm:"primaryKey"`
	RoomID    int       `gorm:"not null;uniqueIndex:idx_room_members_room_user"`
	UserID    string    `gorm:"size:64;not null;uniqueIndex:idx_room_members_room_user;index"`
	IsActive  bool      `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}
