package api

import (
	"beam-chat/contract"
	"beam-chat/domain"
	"beam-chat/errors"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/samber/lo"
)

// Role names used by moderation calls.
const (
	RoleMod    = "Mod"
	RoleBanned = "Banned"
)

// ChatCredentials is a short-lived auth key and the chat nodes it is valid on.
type ChatCredentials struct {
	AuthKey   string   `json:"authkey"`
	Endpoints []string `json:"endpoints"`
}

// ChatUser is one entry of the roster seed.
type ChatUser struct {
	ID       domain.ParticipantID
	Username string
	Roles    domain.Roles
}

type chatUserPayload struct {
	UserID    json.Number  `json:"userId"`
	UserName  string       `json:"userName"`
	UserRoles domain.Roles `json:"userRoles"`
}

func unexpectedStatus(res contract.Response, method, endpoint string) error {
	return fmt.Errorf("%w: %d on %s %s", errors.ErrUnexpectedStatus, res.StatusCode, method, endpoint)
}

func decodeBody[T any](res contract.Response, endpoint string) (T, error) {
	var out T
	if err := json.Unmarshal(res.Body, &out); err != nil {
		return out, fmt.Errorf("decode %s: %w", endpoint, err)
	}
	return out, nil
}

// FetchChatCredentials fetches an auth key and candidate endpoints for channel.
func FetchChatCredentials(ctx context.Context, g contract.Gateway, channel domain.ChannelID) (ChatCredentials, error) {
	endpoint := fmt.Sprintf("chats/%d", channel)
	res, err := g.Request(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return ChatCredentials{}, err
	}
	if !res.OK() {
		return ChatCredentials{}, unexpectedStatus(res, http.MethodGet, endpoint)
	}
	creds, err := decodeBody[ChatCredentials](res, endpoint)
	if err != nil {
		return ChatCredentials{}, err
	}
	if len(creds.Endpoints) == 0 {
		return ChatCredentials{}, errors.ErrNoEndpoints
	}
	return creds, nil
}

// FetchChatUsers returns the participants currently present in channel.
func FetchChatUsers(ctx context.Context, g contract.Gateway, channel domain.ChannelID) ([]ChatUser, error) {
	endpoint := fmt.Sprintf("chats/%d/users", channel)
	res, err := g.Request(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if !res.OK() {
		return nil, unexpectedStatus(res, http.MethodGet, endpoint)
	}
	users, err := decodeBody[[]chatUserPayload](res, endpoint)
	if err != nil {
		return nil, err
	}
	return lo.Map(users, func(u chatUserPayload, _ int) ChatUser {
		return ChatUser{ID: domain.ParticipantID(u.UserID.String()), Username: u.UserName, Roles: u.UserRoles}
	}), nil
}

// ClearChat removes every message of channel. It reports whether the server accepted.
func ClearChat(ctx context.Context, g contract.Gateway, channel domain.ChannelID) (bool, error) {
	res, err := g.Request(ctx, http.MethodDelete, fmt.Sprintf("chats/%d/message", channel), nil)
	if err != nil {
		return false, err
	}
	return res.OK(), nil
}

func DeleteMessage(ctx context.Context, g contract.Gateway, channel domain.ChannelID, messageID string) (bool, error) {
	endpoint := fmt.Sprintf("chats/%d/message/%s", channel, url.PathEscape(messageID))
	res, err := g.Request(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return false, err
	}
	return res.OK(), nil
}

// RoleChange adds or removes roles of a user on a channel.
type RoleChange struct {
	Add    []string `json:"add,omitempty"`
	Remove []string `json:"remove,omitempty"`
}

func UpdateUserRoles(ctx context.Context, g contract.Gateway, channel domain.ChannelID, user domain.UserID, change RoleChange) (bool, error) {
	endpoint := fmt.Sprintf("channels/%d/users/%d", channel, user)
	res, err := g.Request(ctx, http.MethodPatch, endpoint, change)
	if err != nil {
		return false, err
	}
	return res.OK(), nil
}

// GetChannel resolves a channel token (or numeric id) to its record.
func GetChannel(ctx context.Context, g contract.Gateway, token string) (domain.Channel, error) {
	endpoint := "channels/" + url.PathEscape(token)
	res, err := g.Request(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.Channel{}, err
	}
	switch res.StatusCode {
	case http.StatusOK:
		return decodeBody[domain.Channel](res, endpoint)
	case http.StatusNotFound:
		return domain.Channel{}, fmt.Errorf("%w: %s", errors.ErrChannelNotFound, token)
	default:
		return domain.Channel{}, unexpectedStatus(res, http.MethodGet, endpoint)
	}
}
