package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

var (
	// ErrMissingAPIKey is returned when the request carries no bearer key.
	ErrMissingAPIKey = errors.New("missing Authorization header")
	// ErrInvalidAPIKey is returned when the key does not resolve to an actor.
	ErrInvalidAPIKey = errors.New("invalid API key")
)

// Authenticator resolves an API key to an actor.
type Authenticator interface {
	Authenticate(ctx context.Context, apiKey string) (*Actor, error)
}

// ExtractAPIKey extracts API key from Authorization header
func ExtractAPIKey(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", ErrMissingAPIKey
	}

	// Expect "Bearer <api_key>" format
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", errors.New("invalid Authorization header format, expected 'Bearer <api_key>'")
	}
	return parts[1], nil
}

// DevActorID is the actor the development key resolves to.
const DevActorID = "activity-dev"

// DevAuthenticator accepts a single development key and resolves it to an
// actor holding every permission.
type DevAuthenticator struct {
	key string
}

func NewDevAuthenticator(key string) *DevAuthenticator {
	return &DevAuthenticator{key: key}
}

func (d *DevAuthenticator) Authenticate(_ context.Context, apiKey string) (*Actor, error) {
	if d.key == "" || apiKey != d.key {
		return nil, ErrInvalidAPIKey
	}
	return &Actor{ID: DevActorID, Name: "Local Development Key", Permissions: []Permission{PermAll}}, nil
}

// StaticAuthenticator resolves keys from a fixed table.
type StaticAuthenticator struct {
	actors map[string]Actor
}

func NewStaticAuthenticator(keys map[string]Actor) *StaticAuthenticator {
	cp := make(map[string]Actor, len(keys))
	for k, v := range keys {
		cp[k] = v
	}
	return &StaticAuthenticator{actors: cp}
}

func (s *StaticAuthenticator) Authenticate(_ context.Context, apiKey string) (*Actor, error) {
	a, ok := s.actors[apiKey]
	if !ok {
		return nil, ErrInvalidAPIKey
	}
	return &a, nil
}
