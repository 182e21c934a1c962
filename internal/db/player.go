package db

import "time"

type Player struct {
	ID         string    `gorm:"primaryKey;size:64"`
	Name       string    `gorm:"size:64;not null"`
	Surname    string    `gorm:"size:64;not null"`
	Position   string    `gorm:"size:64;not null"`
	Registered bool      `gorm:"not null"`
	CreatedAt  time.Time `gorm:"not null"`
	UpdatedAt  time.Time `gorm:"not null"`
}
