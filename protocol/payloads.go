package protocol

import (
	"beam-chat/domain"
	"time"
)

type statsPayload struct {
	Viewers  int `json:"viewers"`
	Chatters int `json:"chatters"`
}

type userPayload struct {
	ID       domain.ParticipantID `json:"id"`
	User     domain.ParticipantID `json:"user"`
	Username string               `json:"username"`
	Roles    domain.Roles         `json:"roles"`
}

type deletePayload struct {
	ID string `json:"id"`
}

type errorPayload struct {
	Type string `json:"type"`
}

type authPayload struct {
	Authenticated *bool  `json:"authenticated"`
	Role          string `json:"role"`
}

type chatMessagePayload struct {
	Channel   int64                `json:"channel"`
	ID        string               `json:"id"`
	UserID    domain.ParticipantID `json:"user_id"`
	UserName  string               `json:"user_name"`
	UserRoles domain.Roles         `json:"user_roles"`
	Message   struct {
		Message []domain.MessagePart `json:"message"`
		Meta    map[string]any       `json:"meta"`
	} `json:"message"`
}

// ChannelOptions is the legacy ChannelOptions event. The same event name carries two shapes,
// told apart by the presence of "name".
type ChannelOptions interface {
	channelOptions()
}

type DescriptionUpdate struct {
	Name string
	Body string
}

// SlowChatUpdate changes the outbound spacing. The server sends it in milliseconds.
type SlowChatUpdate struct {
	SlowChat time.Duration
}

func (DescriptionUpdate) channelOptions() {}
func (SlowChatUpdate) channelOptions()    {}

func parseChannelOptions(data any) (ChannelOptions, error) {
	if name, ok := asMap(data)["name"]; ok && name != nil {
		p, err := decodePayload[struct {
			Name string `json:"name"`
			Body string `json:"body"`
		}](data)
		if err != nil {
			return nil, err
		}
		return DescriptionUpdate{Name: p.Name, Body: p.Body}, nil
	}
	p, err := decodePayload[struct {
		SlowChat int64 `json:"slowchat"`
	}](data)
	if err != nil {
		return nil, err
	}
	return SlowChatUpdate{SlowChat: time.Duration(p.SlowChat) * time.Millisecond}, nil
}
