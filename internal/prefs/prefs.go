// Package prefs stores per-chat preferences in a YAML file.
package prefs

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	pkgerrors "github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	appLog "msgcal/internal/log"
)

// ErrInvalid is returned by Put for preferences that fail validation.
var ErrInvalid = errors.New("invalid preferences")

// Preferences overrides server defaults for one chat.
type Preferences struct {
	// Timezone is an IANA zone name. Empty means the server default.
	Timezone string `yaml:"timezone,omitempty" json:"timezone,omitempty"`
	// DurationMinutes is the default length of timed events. 0 means the
	// server default.
	DurationMinutes int `yaml:"duration_minutes,omitempty" json:"duration_minutes,omitempty"`
	// Blacklist drops any message containing one of these words.
	Blacklist []string `yaml:"blacklist,omitempty" json:"blacklist,omitempty"`
	// Whitelist, when non-empty, keeps only messages containing one of
	// these words.
	Whitelist []string `yaml:"whitelist,omitempty" json:"whitelist,omitempty"`
}

// Validate checks the timezone and duration.
func (p Preferences) Validate() error {
	if p.Timezone != "" {
		if _, err := time.LoadLocation(p.Timezone); err != nil {
			return pkgerrors.Wrapf(ErrInvalid, "timezone %q", p.Timezone)
		}
	}
	if p.DurationMinutes < 0 {
		return pkgerrors.Wrapf(ErrInvalid, "duration %d", p.DurationMinutes)
	}
	return nil
}

// Allows reports whether text passes the chat's word filters. Matching is
// case-insensitive on substrings.
func (p Preferences) Allows(text string) bool {
	lower := strings.ToLower(text)
	for _, w := range p.Blacklist {
		if w = strings.ToLower(strings.TrimSpace(w)); w != "" && strings.Contains(lower, w) {
			return false
		}
	}
	if len(p.Whitelist) == 0 {
		return true
	}
	for _, w := range p.Whitelist {
		if w = strings.ToLower(strings.TrimSpace(w)); w != "" && strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

// file is the on-disk layout.
type file struct {
	Chats map[string]Preferences `yaml:"chats"`
}

// Store is safe for concurrent use. A Store with an empty path keeps
// preferences in memory only.
type Store struct {
	path string

	mu    sync.RWMutex
	chats map[string]Preferences
}

// Open returns a Store backed by path, loading it if it exists.
func Open(path string) (*Store, error) {
	s := &Store{path: path, chats: map[string]Preferences{}}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the backing file, or "" for an in-memory store.
func (s *Store) Path() string {
	return s.path
}

// Get returns the preferences for chatID.
func (s *Store) Get(chatID string) (Preferences, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.chats[chatID]
	return p, ok
}

// Len returns the number of chats with stored preferences.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chats)
}

// Put validates p, stores it under chatID and persists the store.
func (s *Store) Put(chatID string, p Preferences) error {
	if strings.TrimSpace(chatID) == "" {
		return pkgerrors.Wrap(ErrInvalid, "empty chat id")
	}
	if err := p.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev, had := s.chats[chatID]
	s.chats[chatID] = p
	if err := s.saveLocked(); err != nil {
		if had {
			s.chats[chatID] = prev
		} else {
			delete(s.chats, chatID)
		}
		return err
	}
	return nil
}

// Reload replaces the in-memory state with the file contents. A missing
// file yields an empty store. The lock is held for the whole read so a
// concurrent Put is either saved before the read or applied after it.
func (s *Store) Reload() error {
	if s.path == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.chats = map[string]Preferences{}
			return nil
		}
		return pkgerrors.Wrapf(err, "read preferences %s", s.path)
	}

	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return pkgerrors.Wrapf(err, "parse preferences %s", s.path)
	}
	chats := make(map[string]Preferences, len(f.Chats))
	for id, p := range f.Chats {
		if err := p.Validate(); err != nil {
			appLog.Error("skipping invalid chat preferences", err, "chat_id", id)
			continue
		}
		chats[id] = p
	}
	s.chats = chats

	appLog.Debug("preferences loaded", "path", s.path, "chats", len(chats))
	return nil
}

// saveLocked writes the store atomically. Caller holds s.mu.
func (s *Store) saveLocked() error {
	if s.path == "" {
		return nil
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return pkgerrors.Wrap(err, "create preferences dir")
	}

	data, err := yaml.Marshal(file{Chats: s.chats})
	if err != nil {
		return pkgerrors.Wrap(err, "encode preferences")
	}

	tmp, err := os.CreateTemp(dir, ".msgcal-prefs-*.tmp")
	if err != nil {
		return pkgerrors.Wrap(err, "create temp file")
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return pkgerrors.Wrap(err, "write preferences")
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return pkgerrors.Wrap(err, "sync preferences")
	}
	if err := tmp.Close(); err != nil {
		return pkgerrors.Wrap(err, "close preferences")
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return pkgerrors.Wrap(err, "chmod preferences")
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return pkgerrors.Wrap(err, "rename preferences")
	}
	return nil
}
