package api

import (
	"beam-chat/contract"
	"beam-chat/domain"
	"beam-chat/errors"
	"beam-chat/mocks"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newTestGateway(t *testing.T, handler http.HandlerFunc, jar http.CookieJar) *HTTPGateway {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	g, err := NewHTTPGateway(logs.GetLoggerFromLevel(slog.LevelDebug), server.URL+"/api/v1", jar, 0)
	require.NoError(t, err)
	return g
}

func TestHTTPGateway_Get_Sends_Query(t *testing.T) {
	req := require.New(t)
	var gotPath, gotQuery, gotAgent string
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotQuery, gotAgent = r.URL.Path, r.URL.RawQuery, r.UserAgent()
		_, _ = w.Write([]byte(`{"ok":true}`))
	}, nil)

	res, err := g.Request(context.Background(), http.MethodGet, "chats/12", map[string]string{"page": "2"})

	req.NoError(err)
	req.True(res.OK())
	req.Equal("/api/v1/chats/12", gotPath)
	req.Equal("page=2", gotQuery)
	req.Equal(DefaultUserAgent, gotAgent)
	req.JSONEq(`{"ok":true}`, string(res.Body))
}

func TestHTTPGateway_Get_Struct_Payload_Uses_Json_Tags(t *testing.T) {
	req := require.New(t)
	var query url.Values
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query()
	}, nil)

	_, err := g.Request(context.Background(), http.MethodGet, "channels", struct {
		Limit int    `json:"limit"`
		Order string `json:"order"`
	}{Limit: 50, Order: "viewers"})

	req.NoError(err)
	req.Equal("50", query.Get("limit"))
	req.Equal("viewers", query.Get("order"))
}

func TestHTTPGateway_Patch_Sends_Json_Body(t *testing.T) {
	req := require.New(t)
	var method, contentType string
	var body []byte
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		method, contentType = r.Method, r.Header.Get("Content-Type")
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusForbidden)
	}, nil)

	ok, err := UpdateUserRoles(context.Background(), g, 12, 99, RoleChange{Add: []string{RoleBanned}})

	req.NoError(err)
	req.False(ok)
	req.Equal(http.MethodPatch, method)
	req.Equal("application/json", contentType)
	req.JSONEq(`{"add":["Banned"]}`, string(body))
}

func TestFetchChatCredentials(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	gateway := mocks.NewMockGateway(ctrl)

	// Given the control plane answers credentials
	gateway.EXPECT().Request(gomock.Any(), http.MethodGet, "chats/1234", nil).
		Return(contract.Response{StatusCode: 200, Body: []byte(`{"authkey":"k","endpoints":["wss://a","wss://b"]}`)}, nil)

	creds, err := FetchChatCredentials(context.Background(), gateway, 1234)

	req.NoError(err)
	req.Equal("k", creds.AuthKey)
	req.Equal([]string{"wss://a", "wss://b"}, creds.Endpoints)
}

func TestFetchChatCredentials_Failures(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	gateway := mocks.NewMockGateway(ctrl)

	gateway.EXPECT().Request(gomock.Any(), http.MethodGet, "chats/1", nil).
		Return(contract.Response{StatusCode: 500}, nil)
	_, err := FetchChatCredentials(context.Background(), gateway, 1)
	req.ErrorIs(err, errors.ErrUnexpectedStatus)

	gateway.EXPECT().Request(gomock.Any(), http.MethodGet, "chats/1", nil).
		Return(contract.Response{StatusCode: 200, Body: []byte(`{"authkey":"k","endpoints":[]}`)}, nil)
	_, err = FetchChatCredentials(context.Background(), gateway, 1)
	req.ErrorIs(err, errors.ErrNoEndpoints)
}

func TestFetchChatUsers_Numeric_Ids(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	gateway := mocks.NewMockGateway(ctrl)

	gateway.EXPECT().Request(gomock.Any(), http.MethodGet, "chats/7/users", nil).
		Return(contract.Response{StatusCode: 200, Body: []byte(
			`[{"userId":15,"userName":"carol","userRoles":["User"]},{"userId":16,"userName":"dan","userRoles":["Mod","User"]}]`)}, nil)

	users, err := FetchChatUsers(context.Background(), gateway, 7)

	req.NoError(err)
	req.Len(users, 2)
	req.Equal(domain.ParticipantID("15"), users[0].ID)
	req.Equal("dan", users[1].Username)
	req.True(users[1].Roles.Has("Mod"))
}

func TestGetChannel(t *testing.T) {
	req := require.New(t)
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/channels/streamer") {
			_, _ = w.Write([]byte(`{"id":1234,"token":"Streamer","online":true,"numFollowers":42}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}, nil)

	channel, err := GetChannel(context.Background(), g, "streamer")
	req.NoError(err)
	req.Equal(domain.ChannelID(1234), channel.ID)
	req.Equal("Streamer", channel.Token)
	req.Equal(42, channel.NumFollowers)

	_, err = GetChannel(context.Background(), g, "ghost")
	req.ErrorIs(err, errors.ErrChannelNotFound)
}

func TestModeration_Calls_Report_Status(t *testing.T) {
	req := require.New(t)
	var paths []string
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.Method+" "+r.URL.Path)
	}, nil)

	ok, err := ClearChat(context.Background(), g, 12)
	req.NoError(err)
	req.True(ok)

	ok, err = DeleteMessage(context.Background(), g, 12, "9f1c")
	req.NoError(err)
	req.True(ok)

	req.Equal([]string{"DELETE /api/v1/chats/12/message", "DELETE /api/v1/chats/12/message/9f1c"}, paths)
}

func TestLogin_Statuses(t *testing.T) {
	req := require.New(t)
	status := http.StatusOK
	var body map[string]any
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		body = map[string]any{}
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.WriteHeader(status)
		switch status {
		case http.StatusOK:
			_, _ = w.Write([]byte(`{"id":99,"username":"bot","channel":{"id":1234,"token":"bot"}}`))
		case http.StatusUnauthorized:
			_, _ = w.Write([]byte(`{"message":"Invalid username or password."}`))
		}
	}, nil)
	ctx := context.Background()

	// When credentials are right
	user, err := Login(ctx, g, LoginRequest{Username: "bot", Password: "secret", Code: "123456"})
	req.NoError(err)
	req.Equal(domain.UserID(99), user.ID)
	req.Equal(domain.ChannelID(1234), user.Channel.ID)
	req.Equal("123456", body["code"])

	// When credentials are wrong
	status = http.StatusUnauthorized
	_, err = Login(ctx, g, LoginRequest{Username: "bot", Password: "nope"})
	req.ErrorIs(err, errors.ErrInvalidCredentials)
	req.Contains(err.Error(), "Invalid username or password.")
	req.NotContains(body, "code")

	// When too many attempts were made
	status = StatusRateLimited
	_, err = Login(ctx, g, LoginRequest{Username: "bot", Password: "nope"})
	req.ErrorIs(err, errors.ErrRateLimited)

	// When the two-factor code is malformed the request is not sent
	_, err = Login(ctx, g, LoginRequest{Username: "bot", Password: "secret", Code: "12"})
	req.ErrorIs(err, errors.ErrLoginFailed)
}

func TestCurrentUser(t *testing.T) {
	req := require.New(t)
	loggedIn := false
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		if !loggedIn {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"id":99,"username":"bot"}`))
	}, nil)

	_, ok, err := CurrentUser(context.Background(), g)
	req.NoError(err)
	req.False(ok)

	loggedIn = true
	user, ok, err := CurrentUser(context.Background(), g)
	req.NoError(err)
	req.True(ok)
	req.Equal("bot", user.Username)
}

type memoryStore struct {
	mu      sync.Mutex
	cookies map[string][]*http.Cookie
}

func (m *memoryStore) LoadCookies(account string) ([]*http.Cookie, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cookies[account], nil
}

func (m *memoryStore) SaveCookies(account string, cookies []*http.Cookie) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cookies[account] = cookies
	return nil
}

func TestJarStore_Persists_And_Restores_Session(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	store := &memoryStore{cookies: map[string][]*http.Cookie{}}
	var seen string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/users/login" {
			http.SetCookie(w, &http.Cookie{Name: "session", Value: "s3cr3t", Path: "/"})
			_, _ = w.Write([]byte(`{"id":1,"username":"bot"}`))
			return
		}
		if c, err := r.Cookie("session"); err == nil {
			seen = c.Value
		}
	}))
	defer server.Close()
	baseURL := server.URL + "/api/v1/"

	// Given a login through a fresh jar
	jar, err := NewJarStore(log, store, "Bot", baseURL)
	req.NoError(err)
	g, err := NewHTTPGateway(log, baseURL, jar, 0)
	req.NoError(err)
	_, err = Login(context.Background(), g, LoginRequest{Username: "bot", Password: "secret"})
	req.NoError(err)

	// Then the cookie is stored under the lowercase account
	req.Len(store.cookies["bot"], 1)

	// When a new jar is built for the same account
	restored, err := NewJarStore(log, store, "bot", baseURL)
	req.NoError(err)
	g, err = NewHTTPGateway(log, baseURL, restored, 0)
	req.NoError(err)
	_, err = g.Request(context.Background(), http.MethodGet, "users/current", nil)
	req.NoError(err)

	// Then the session cookie is sent again
	req.Equal("s3cr3t", seen)
}
