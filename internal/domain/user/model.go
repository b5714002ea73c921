package user

import "time"

// User учётная запись relay. Записи истории разделены по пользователям.
type User struct {
	ID           int64
	Login        string
	PasswordHash string
	CreatedAt    time.Time
}
