package license

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

type Status string

const (
	StatusActive   Status = "active"
	StatusDisabled Status = "disabled"
)

const DefaultMaxAccounts = 1

var (
	ErrNotFound             = errors.New("license not found")
	ErrDuplicateKey         = errors.New("license key already exists")
	ErrAccountLimitExceeded = errors.New("license account limit exceeded")
	ErrInvalidLicense       = errors.New("invalid license")
)

// License is a key bound to at most MaxAccounts distinct accounts.
// BoundAccounts only ever grows by append.
type License struct {
	Key           string
	MaxAccounts   int
	BoundAccounts []int64
	Expiry        *time.Time
	Status        Status
	CreatedAt     time.Time
}

func (l License) HasAccount(account int64) bool {
	return slices.Contains(l.BoundAccounts, account)
}

func (l License) SeatsAvailable() bool {
	return len(l.BoundAccounts) < l.MaxAccounts
}

func (l License) Active() bool {
	return l.Status == StatusActive
}

func (l License) ExpiredAt(now time.Time) bool {
	return l.Expiry != nil && now.After(*l.Expiry)
}

// Clone returns a copy that shares no memory with l.
func (l License) Clone() License {
	c := l
	c.BoundAccounts = slices.Clone(l.BoundAccounts)
	if l.Expiry != nil {
		e := *l.Expiry
		c.Expiry = &e
	}
	return c
}

// MaskKey shortens a license key for logs. Keys are bearer secrets.
func MaskKey(key string) string {
	const shown = 4
	if len(key) <= shown*2 {
		return strings.Repeat("*", len(key))
	}
	return key[:shown] + "..." + key[len(key)-shown:]
}

// NewLicense holds the fields accepted when creating a license.
type NewLicense struct {
	Key         string
	MaxAccounts int
	Expiry      *time.Time
}

// Normalize applies defaults: a zero MaxAccounts becomes DefaultMaxAccounts.
func (n NewLicense) Normalize() NewLicense {
	n.Key = strings.TrimSpace(n.Key)
	if n.MaxAccounts == 0 {
		n.MaxAccounts = DefaultMaxAccounts
	}
	return n
}

func (n NewLicense) Validate() error {
	if n.Key == "" {
		return fmt.Errorf("%w: key is required", ErrInvalidLicense)
	}
	if n.MaxAccounts < 1 {
		return fmt.Errorf("%w: maxAccounts must be positive, got %d", ErrInvalidLicense, n.MaxAccounts)
	}
	return nil
}

// Build turns a validated NewLicense into the record a store persists.
func (n NewLicense) Build(now time.Time) License {
	return License{
		Key:           n.Key,
		MaxAccounts:   n.MaxAccounts,
		BoundAccounts: []int64{},
		Expiry:        n.Expiry,
		Status:        StatusActive,
		CreatedAt:     now.UTC(),
	}
}

// Store persists licenses. Implementations must make AppendAccount atomic per key:
// the account is appended only if it is absent and a seat is free, otherwise
// ErrAccountLimitExceeded is returned. Appending an already bound account succeeds
// without changing the record.
type Store interface {
	Lookup(ctx context.Context, key string) (License, error)
	Insert(ctx context.Context, n NewLicense) (License, error)
	AppendAccount(ctx context.Context, key string, account int64) (License, error)
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
