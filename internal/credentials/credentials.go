// Package credentials resolves the bearer token used for the sync server
// and the realtime channel.
package credentials

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/zalando/go-keyring"
	"golang.org/x/oauth2"
)

const (
	// Service is the keyring service name.
	Service = "cadence"

	// EnvToken overrides every other source.
	EnvToken = "CADENCE_TOKEN"

	defaultUser = "default"
)

// ErrNoToken is returned when no source holds a token.
var ErrNoToken = errors.New("no token configured; run `cadence login`")

// Origin names where a token came from.
type Origin string

// Token origins, in lookup order.
const (
	OriginEnv     Origin = "env"
	OriginConfig  Origin = "config"
	OriginKeyring Origin = "keyring"
	OriginNone    Origin = "none"
)

// Store looks tokens up in the environment, the config file and the OS
// keyring.
type Store struct {
	user        string
	configToken string
	lookupEnv   func(string) (string, bool)
}

// New creates a store for the given keyring account. configToken is the
// already resolved server.token from the config file.
func New(user, configToken string) *Store {
	if user == "" {
		user = defaultUser
	}
	return &Store{user: user, configToken: configToken, lookupEnv: os.LookupEnv}
}

// Lookup returns the token and where it was found.
func (s *Store) Lookup() (string, Origin, error) {
	if v, ok := s.lookupEnv(EnvToken); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v), OriginEnv, nil
	}
	if s.configToken != "" {
		return s.configToken, OriginConfig, nil
	}

	v, err := keyring.Get(Service, s.user)
	switch {
	case errors.Is(err, keyring.ErrNotFound):
		return "", OriginNone, ErrNoToken
	case err != nil:
		return "", OriginNone, fmt.Errorf("reading keyring: %w", err)
	case v == "":
		return "", OriginNone, ErrNoToken
	}
	return v, OriginKeyring, nil
}

// Token implements oauth2.TokenSource.
func (s *Store) Token() (*oauth2.Token, error) {
	v, _, err := s.Lookup()
	if err != nil {
		return nil, err
	}
	return &oauth2.Token{AccessToken: v, TokenType: "Bearer"}, nil
}

// TokenSource returns a caching oauth2.TokenSource over the store.
func (s *Store) TokenSource() oauth2.TokenSource {
	return oauth2.ReuseTokenSource(nil, s)
}

// Available reports whether any source holds a token.
func (s *Store) Available() bool {
	_, _, err := s.Lookup()
	return err == nil
}

// Save writes token to the keyring.
func (s *Store) Save(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New("token is empty")
	}
	if err := keyring.Set(Service, s.user, token); err != nil {
		return fmt.Errorf("writing keyring: %w", err)
	}
	return nil
}

// Delete removes the keyring entry. Deleting a missing entry returns
// ErrNoToken.
func (s *Store) Delete() error {
	err := keyring.Delete(Service, s.user)
	if errors.Is(err, keyring.ErrNotFound) {
		return ErrNoToken
	}
	if err != nil {
		return fmt.Errorf("deleting keyring entry: %w", err)
	}
	return nil
}
