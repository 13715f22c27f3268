package session

import (
	"errors"
	"os"

	"github.com/avery/liftd/internal/syncconfig"
)

// ErrNoUser means no user identity is available. Workout operations that
// scope by owner require one.
var ErrNoUser = errors.New("no user configured: run 'liftd init' or set LIFTD_USER_ID")

// Provider supplies the current user identity to the operations layer.
type Provider interface {
	CurrentUserID() (string, error)
}

// ConfigProvider resolves the user from stored auth credentials.
type ConfigProvider struct{}

func (ConfigProvider) CurrentUserID() (string, error) {
	if v := os.Getenv("LIFTD_USER_ID"); v != "" {
		return v, nil
	}
	creds, err := syncconfig.LoadAuth()
	if err != nil {
		return "", err
	}
	if creds == nil || creds.UserID == "" {
		return "", ErrNoUser
	}
	return creds.UserID, nil
}

// Static pins the user, for tests and single-user setups.
type Static string

func (s Static) CurrentUserID() (string, error) {
	if s == "" {
		return "", ErrNoUser
	}
	return string(s), nil
}
