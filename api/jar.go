package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"

	"golang.org/x/net/publicsuffix"
)

// CookieStore persists cookies per account.
type CookieStore interface {
	LoadCookies(account string) ([]*http.Cookie, error)
	SaveCookies(account string, cookies []*http.Cookie) error
}

// JarStore is the cookie jar of one account. Every cookie the control plane sets is written
// through to the store so a restart keeps the login session.
type JarStore struct {
	log     *slog.Logger
	account string
	base    *url.URL
	store   CookieStore
	jar     *cookiejar.Jar
	mu      sync.Mutex
}

func NewJarStore(log *slog.Logger, store CookieStore, account, baseURL string) (*JarStore, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url %q: %w", baseURL, err)
	}
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, err
	}
	account = strings.ToLower(account)
	cookies, err := store.LoadCookies(account)
	if err != nil {
		return nil, err
	}
	if len(cookies) > 0 {
		jar.SetCookies(base, cookies)
		log.Debug("Restored cookies", "account", account, "count", len(cookies))
	}
	return &JarStore{log: log, account: account, base: base, store: store, jar: jar}, nil
}

func (j *JarStore) Account() string { return j.account }

func (j *JarStore) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.jar.SetCookies(u, cookies)
	if err := j.store.SaveCookies(j.account, j.jar.Cookies(j.base)); err != nil {
		j.log.Warn("Unable to persist cookies", "account", j.account, "error", err)
	}
}

func (j *JarStore) Cookies(u *url.URL) []*http.Cookie {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.jar.Cookies(u)
}
