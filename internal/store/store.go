package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
)

var (
	ErrNotFound    = errors.New("saved match not found")
	ErrInvalidName = errors.New("invalid save name")
)

// AutosaveName is the slot the session manager writes after every move.
const AutosaveName = "autosave"

const maxNameLen = 64

// Record is one saved match. State is the serialized match.
type Record struct {
	Name    string    `json:"name"`
	State   string    `json:"state"`
	SavedAt time.Time `json:"savedAt"`
}

// Store keeps saved matches by name. Saving under an existing name overwrites it.
type Store interface {
	Save(ctx context.Context, rec Record) error
	Load(ctx context.Context, name string) (*Record, error)
	// List returns every record ordered by name.
	List(ctx context.Context) ([]Record, error)
	Delete(ctx context.Context, name string) error
	DeleteAll(ctx context.Context) error
	Close() error
}

// NormalizeName trims name and checks that it can be used as a key.
func NormalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("empty name: %w", ErrInvalidName)
	}
	if len(name) > maxNameLen {
		return "", fmt.Errorf("name longer than %d bytes: %w", maxNameLen, ErrInvalidName)
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return "", fmt.Errorf("name %q contains control characters: %w", name, ErrInvalidName)
		}
	}
	return name, nil
}
