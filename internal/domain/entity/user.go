package entity

import "time"

// DefaultCash стартовый баланс нового пользователя.
const DefaultCash int64 = 10000

type User struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
	Gender       *string
	Birth        *time.Time
	Cash         int64
}
