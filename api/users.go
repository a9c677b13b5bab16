package api

import (
	"beam-chat/contract"
	"beam-chat/domain"
	"beam-chat/errors"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
)

// StatusRateLimited is the non standard status the control plane answers when too many logins were attempted.
const StatusRateLimited = 492

var validate = validator.New()

// LoginRequest is the body of users/login. Code is the optional two-factor code.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
	Code     string `json:"code,omitempty" validate:"omitempty,len=6,numeric"`
}

type errorBody struct {
	Message string `json:"message"`
}

// CurrentUser returns the user bound to the gateway cookies. ok is false when nobody is logged in.
func CurrentUser(ctx context.Context, g contract.Gateway) (user domain.User, ok bool, err error) {
	const endpoint = "users/current"
	res, err := g.Request(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.User{}, false, err
	}
	if !res.OK() {
		return domain.User{}, false, nil
	}
	user, err = decodeBody[domain.User](res, endpoint)
	return user, err == nil, err
}

// Login opens a session on the control plane. The session cookie lands in the gateway jar.
func Login(ctx context.Context, g contract.Gateway, login LoginRequest) (domain.User, error) {
	const endpoint = "users/login"
	if err := validate.Struct(login); err != nil {
		return domain.User{}, fmt.Errorf("%w: %v", errors.ErrLoginFailed, err)
	}
	res, err := g.Request(ctx, http.MethodPost, endpoint, login)
	if err != nil {
		return domain.User{}, err
	}
	switch res.StatusCode {
	case http.StatusOK:
		return decodeBody[domain.User](res, endpoint)
	case http.StatusUnauthorized:
		var reason errorBody
		_ = json.Unmarshal(res.Body, &reason)
		return domain.User{}, fmt.Errorf("%w: %s", errors.ErrInvalidCredentials, reason.Message)
	case StatusRateLimited:
		return domain.User{}, errors.ErrRateLimited
	default:
		return domain.User{}, fmt.Errorf("%w: status %d", errors.ErrLoginFailed, res.StatusCode)
	}
}
