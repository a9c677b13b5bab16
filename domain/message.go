// Package domain contains core concepts of the chat system.
// This file defines chat Message parts and their reassembly rules.
package domain

type PartType string

const (
	TextPart     PartType = "text"
	EmoticonPart PartType = "emoticon"
	LinkPart     PartType = "link"
	TagPart      PartType = "tag"
)

// MessagePart is one fragment of a formatted chat message.
// Text parts carry their content in Data, every other part in Text.
type MessagePart struct {
	Type     PartType       `json:"type"`
	Data     string         `json:"data,omitempty"`
	Text     string         `json:"text,omitempty"`
	Source   string         `json:"source,omitempty"`
	Pack     string         `json:"pack,omitempty"`
	URL      string         `json:"url,omitempty"`
	Username string         `json:"username,omitempty"`
	Coords   map[string]any `json:"coords,omitempty"`
}

// Message is an inbound chat message enriched with its clean text.
type Message struct {
	ID         string
	Channel    ChannelID
	AuthorID   ParticipantID
	AuthorName string
	AuthorRole Roles
	Parts      []MessagePart
	Meta       map[string]any
	CleanText  string
	Emotes     []MessagePart
	Censored   string
	Lang       string
}
