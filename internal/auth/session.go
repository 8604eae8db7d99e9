// Package auth stores 1688 login sessions (cookies captured from a browser)
// so requests can be made as a signed-in buyer.
package auth

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/zalando/go-keyring"
)

const (
	// KeyringService is the service name for keyring storage
	KeyringService = "sourcer-cli"
	// FallbackDir is the directory for file-based session storage (when keyring fails)
	FallbackDir = ".sourcer/sessions"

	manifestKey = "_manifest"
)

// Loader loads a named session
type Loader func(name string) (*SessionData, error)

var (
	storageOnce    sync.Once
	useFileStorage bool
)

// useFileBasedStorage reports whether sessions live on disk instead of the
// OS keyring (Codespaces, CI, containers without a secret service).
func useFileBasedStorage() bool {
	storageOnce.Do(func() {
		if os.Getenv("SOURCER_SESSION_DIR") != "" || os.Getenv("CODESPACES") != "" || os.Getenv("CI") != "" {
			useFileStorage = true
			return
		}

		testKey := "_test_keyring_access_"
		if err := keyring.Set(KeyringService, testKey, "test"); err != nil {
			useFileStorage = true
			return
		}
		keyring.Delete(KeyringService, testKey)
	})
	return useFileStorage
}

func getSessionDir() (string, error) {
	dir := os.Getenv("SOURCER_SESSION_DIR")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(home, FallbackDir)
	}
	return dir, os.MkdirAll(dir, 0700)
}

func getSessionPath(name string) (string, error) {
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", fmt.Errorf("invalid session name %q", name)
	}
	dir, err := getSessionDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name+".json"), nil
}

// SessionData represents stored authentication session
type SessionData struct {
	Name      string            `json:"name"`
	URL       string            `json:"url"`
	Cookies   []Cookie          `json:"cookies"`
	Headers   map[string]string `json:"headers,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	ExpiresAt time.Time         `json:"expires_at,omitempty"`
}

// Cookie represents a browser cookie
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires"`
	HTTPOnly bool    `json:"httpOnly"`
	Secure   bool    `json:"secure"`
	SameSite string  `json:"sameSite,omitempty"`
}

// HTTPCookies converts the stored cookies for use on a request
func (s *SessionData) HTTPCookies() []*http.Cookie {
	out := make([]*http.Cookie, 0, len(s.Cookies))
	for _, c := range s.Cookies {
		hc := &http.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			HttpOnly: c.HTTPOnly,
			Secure:   c.Secure,
		}
		if c.Expires > 0 {
			hc.Expires = time.Unix(int64(c.Expires), 0)
		}
		out = append(out, hc)
	}
	return out
}

// ExpiryFromCookies sets ExpiresAt to the latest cookie expiry, if any
func (s *SessionData) ExpiryFromCookies() {
	maxExpires := 0.0
	for _, c := range s.Cookies {
		if c.Expires > maxExpires {
			maxExpires = c.Expires
		}
	}
	if maxExpires > 0 {
		s.ExpiresAt = time.Unix(int64(maxExpires), 0)
	}
}

// SaveSession saves a session to the OS keyring or file
func SaveSession(session *SessionData) error {
	if session.Name == "" {
		return fmt.Errorf("session name cannot be empty")
	}

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to serialize session: %w", err)
	}

	if useFileBasedStorage() {
		path, err := getSessionPath(session.Name)
		if err != nil {
			return fmt.Errorf("failed to get session path: %w", err)
		}
		if err := os.WriteFile(path, data, 0600); err != nil {
			return fmt.Errorf("failed to save session file: %w", err)
		}
		return nil
	}

	if err := keyring.Set(KeyringService, session.Name, string(data)); err != nil {
		return fmt.Errorf("failed to save to keyring: %w", err)
	}
	return nil
}

// LoadSession loads a session from the OS keyring or file
func LoadSession(name string) (*SessionData, error) {
	if name == "" {
		return nil, fmt.Errorf("session name cannot be empty")
	}

	var data string
	if useFileBasedStorage() {
		path, err := getSessionPath(name)
		if err != nil {
			return nil, fmt.Errorf("failed to get session path: %w", err)
		}
		fileData, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load session file: %w", err)
		}
		data = string(fileData)
	} else {
		var err error
		data, err = keyring.Get(KeyringService, name)
		if err != nil {
			return nil, fmt.Errorf("failed to load from keyring: %w", err)
		}
	}

	var session SessionData
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, fmt.Errorf("failed to deserialize session: %w", err)
	}

	if !session.ExpiresAt.IsZero() && time.Now().After(session.ExpiresAt) {
		return nil, fmt.Errorf("session %q expired at %s", name, session.ExpiresAt.Format(time.RFC3339))
	}

	return &session, nil
}

// DeleteSession removes a session from the OS keyring or file
func DeleteSession(name string) error {
	if name == "" {
		return fmt.Errorf("session name cannot be empty")
	}

	if useFileBasedStorage() {
		path, err := getSessionPath(name)
		if err != nil {
			return fmt.Errorf("failed to get session path: %w", err)
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to delete session file: %w", err)
		}
		return nil
	}

	if err := keyring.Delete(KeyringService, name); err != nil {
		return fmt.Errorf("failed to delete from keyring: %w", err)
	}
	return nil
}

// ListSessions returns the names of all stored sessions
func ListSessions() ([]string, error) {
	if useFileBasedStorage() {
		dir, err := getSessionDir()
		if err != nil {
			return nil, err
		}

		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				return []string{}, nil
			}
			return nil, err
		}

		sessions := []string{}
		for _, entry := range entries {
			if !entry.IsDir() && filepath.Ext(entry.Name()) == ".json" {
				sessions = append(sessions, strings.TrimSuffix(entry.Name(), ".json"))
			}
		}
		return sessions, nil
	}

	manifestData, err := keyring.Get(KeyringService, manifestKey)
	if err != nil {
		return []string{}, nil
	}

	var sessions []string
	if err := json.Unmarshal([]byte(manifestData), &sessions); err != nil {
		return nil, fmt.Errorf("failed to deserialize manifest: %w", err)
	}
	return sessions, nil
}

func updateManifest(sessionName string, add bool) error {
	sessions, _ := ListSessions()

	if add {
		if !slices.Contains(sessions, sessionName) {
			sessions = append(sessions, sessionName)
		}
	} else {
		sessions = slices.DeleteFunc(sessions, func(s string) bool { return s == sessionName })
	}

	data, err := json.Marshal(sessions)
	if err != nil {
		return err
	}
	return keyring.Set(KeyringService, manifestKey, string(data))
}

// SaveSessionWithManifest saves a session and records it in the keyring manifest
func SaveSessionWithManifest(session *SessionData) error {
	if err := SaveSession(session); err != nil {
		return err
	}
	if useFileBasedStorage() {
		return nil
	}
	return updateManifest(session.Name, true)
}

// DeleteSessionWithManifest deletes a session and removes it from the manifest
func DeleteSessionWithManifest(name string) error {
	if err := DeleteSession(name); err != nil {
		return err
	}
	if useFileBasedStorage() {
		return nil
	}
	return updateManifest(name, false)
}
