package domain

import (
	"strings"
	"time"
)

type ChannelID int64

// Channel is the plain record of a streaming channel as returned by the REST API.
type Channel struct {
	ID           ChannelID `json:"id"`
	Name         string    `json:"name"`
	Token        string    `json:"token"`
	Description  string    `json:"description"`
	Online       bool      `json:"online"`
	Featured     bool      `json:"featured"`
	Partnered    bool      `json:"partnered"`
	NumFollowers int       `json:"numFollowers"`
	TypeID       *int64    `json:"typeId"`
	UserID       int64     `json:"userId"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// CleanToken lowercases a channel token so it can be used as a registry key.
func CleanToken(token string) string {
	return strings.ToLower(token)
}

func (c Channel) String() string {
	return c.Token
}
