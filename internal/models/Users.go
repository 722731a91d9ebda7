package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const StatusActive = "active"

type User struct {
	ID            uuid.UUID `json:"id"`
	Username      string    `json:"username"`
	Password_Hash string    `json:"-"`
	Email         string    `json:"email"`
	FirstName     string    `json:"firstName"`
	LastName      string    `json:"lastName"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// SplitDisplayName turns "Ann Marie Lee" into ("Ann", "Marie Lee").
func SplitDisplayName(name string) (first, last string) {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return "", ""
	}
	return fields[0], strings.Join(fields[1:], " ")
}
