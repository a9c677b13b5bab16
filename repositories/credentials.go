package repositories

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/samber/lo"
)

const credentialPrefix = "credentials:"

// StoredCookie is the persisted form of a session cookie of the REST control plane.
type StoredCookie struct {
	Name     string    `json:"name"`
	Value    string    `json:"value"`
	Path     string    `json:"path,omitempty"`
	Domain   string    `json:"domain,omitempty"`
	Expires  time.Time `json:"expires,omitempty"`
	Secure   bool      `json:"secure,omitempty"`
	HttpOnly bool      `json:"http_only,omitempty"`
}

// AccountCredentials groups the cookies stored for one account.
type AccountCredentials struct {
	Account   string
	Cookies   []StoredCookie
	UpdatedAt time.Time
}

type diskCredentials struct {
	Cookies   []StoredCookie `json:"cookies"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// CredentialRepository keeps cookies per account in BadgerDB.
// Account names are case-insensitive. Safe for concurrent use: every call runs in its own transaction.
type CredentialRepository struct {
	db *badger.DB
}

func NewCredentialRepository(db *badger.DB) *CredentialRepository {
	return &CredentialRepository{db: db}
}

func credentialKey(account string) []byte {
	return []byte(credentialPrefix + strings.ToLower(account))
}

// LoadCookies returns the stored cookies of account, or none if it never logged in.
func (r *CredentialRepository) LoadCookies(account string) ([]*http.Cookie, error) {
	var disk diskCredentials
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(credentialKey(account))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &disk)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load credentials of %s: %w", account, err)
	}
	return lo.Map(disk.Cookies, func(c StoredCookie, _ int) *http.Cookie {
		return &http.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Path:     c.Path,
			Domain:   c.Domain,
			Expires:  c.Expires,
			Secure:   c.Secure,
			HttpOnly: c.HttpOnly,
		}
	}), nil
}

// SaveCookies replaces the stored cookies of account.
func (r *CredentialRepository) SaveCookies(account string, cookies []*http.Cookie) error {
	disk := diskCredentials{
		Cookies: lo.Map(cookies, func(c *http.Cookie, _ int) StoredCookie {
			return StoredCookie{
				Name:     c.Name,
				Value:    c.Value,
				Path:     c.Path,
				Domain:   c.Domain,
				Expires:  c.Expires,
				Secure:   c.Secure,
				HttpOnly: c.HttpOnly,
			}
		}),
		UpdatedAt: time.Now().UTC(),
	}
	data, err := json.Marshal(disk)
	if err != nil {
		return fmt.Errorf("marshal failed: %w", err)
	}
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(credentialKey(account), data)
	})
}

// Forget removes everything stored for account.
func (r *CredentialRepository) Forget(account string) error {
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(credentialKey(account))
	})
}

// List returns every stored account, ordered by key.
func (r *CredentialRepository) List() ([]AccountCredentials, error) {
	var out []AccountCredentials
	err := r.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(credentialPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			var disk diskCredentials
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &disk)
			}); err != nil {
				return err
			}
			out = append(out, AccountCredentials{
				Account:   strings.TrimPrefix(string(item.Key()), credentialPrefix),
				Cookies:   disk.Cookies,
				UpdatedAt: disk.UpdatedAt,
			})
		}
		return nil
	})
	return out, err
}
