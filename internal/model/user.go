package model

import "time"

type User struct {
	ID           int64
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

type AuthToken struct {
	AccessToken string
	ExpiresAt   time.Time
}
