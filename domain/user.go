package domain

import (
	"strings"
	"time"
)

type UserID int64

// User is the authenticated account the client acts as.
type User struct {
	ID          UserID    `json:"id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name"`
	Channel     *Channel  `json:"channel"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// CleanUsername lowercases a username and drops any mention prefix.
func CleanUsername(username string) string {
	return strings.ToLower(strings.ReplaceAll(username, "@", ""))
}
