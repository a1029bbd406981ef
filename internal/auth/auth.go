package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"
)

var (
	ErrInvalidEmail       = errors.New("invalid email format")
	ErrUserNotFound       = errors.New("user not found")
	ErrIncorrectPassword  = errors.New("incorrect password")
	ErrSessionNotFound    = errors.New("session not found or expired")
	ErrAuthDisabled       = errors.New("authentication is not configured")
	errSessionFileCorrupt = errors.New("session file is corrupt")
)

var emailPattern = regexp.MustCompile(`^([a-zA-Z]+)\.([a-zA-Z]+)@qodeinvest\.com$`)

const defaultSessionTTL = 24 * time.Hour

// userRecord mirrors one entry of users.json.
type userRecord struct {
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// Session is an issued bearer token and the identity behind it.
type Session struct {
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	UserName  string    `json:"user_name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the session is past its lifetime at the given instant.
func (s Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// Service validates users against users.json and manages bearer sessions.
// Sessions are kept in memory and mirrored to one JSON file per user so a
// restart does not log everyone out.
//
// When usersPath does not exist the service runs in open mode: every request
// is treated as the anonymous user and login is rejected.
type Service struct {
	usersPath   string
	sessionsDir string
	ttl         time.Duration

	mu       sync.Mutex
	sessions map[string]Session
	users    map[string]userRecord
	open     bool
}

// NewService loads users.json and any persisted sessions. A missing users
// file is not an error; it switches the service to open mode.
func NewService(usersPath, sessionsDir string, ttl time.Duration) (*Service, error) {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	s := &Service{
		usersPath:   usersPath,
		sessionsDir: sessionsDir,
		ttl:         ttl,
		sessions:    make(map[string]Session),
	}

	if err := s.loadUsers(); err != nil {
		return nil, err
	}
	if !s.open {
		if err := s.loadSessions(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Open reports whether the service runs without a user database.
func (s *Service) Open() bool {
	return s.open
}

func (s *Service) loadUsers() error {
	raw, err := os.ReadFile(s.usersPath)
	if errors.Is(err, os.ErrNotExist) {
		s.open = true
		return nil
	}
	if err != nil {
		return fmt.Errorf("read users file: %w", err)
	}

	users := make(map[string]userRecord)
	if err := json.Unmarshal(raw, &users); err != nil {
		return fmt.Errorf("parse users file: %w", err)
	}

	normalized := make(map[string]userRecord, len(users))
	for email, record := range users {
		normalized[strings.ToLower(email)] = record
	}
	s.users = normalized
	return nil
}

// Login verifies the credentials and issues a session token.
func (s *Service) Login(email, password string) (*Session, error) {
	if s.open {
		return nil, ErrAuthDisabled
	}

	email = strings.ToLower(strings.TrimSpace(email))
	if !emailPattern.MatchString(email) {
		return nil, ErrInvalidEmail
	}

	record, ok := s.users[email]
	if !ok {
		return nil, ErrUserNotFound
	}
	if password != record.Password {
		return nil, ErrIncorrectPassword
	}

	now := time.Now()
	session := Session{
		Token:     newToken(record),
		UserID:    UserID(record.FirstName, record.LastName),
		UserName:  fmt.Sprintf("%s %s", record.FirstName, record.LastName),
		Email:     email,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}

	s.mu.Lock()
	s.sessions[session.Token] = session
	s.mu.Unlock()

	if err := s.persistUserSessions(session.UserID); err != nil {
		return nil, fmt.Errorf("persist session: %w", err)
	}
	return &session, nil
}

// Validate resolves a bearer token to its session. Expired sessions are
// dropped on sight.
func (s *Service) Validate(token string) (*Session, error) {
	if token == "" {
		return nil, ErrSessionNotFound
	}

	s.mu.Lock()
	session, ok := s.sessions[token]
	if ok && session.Expired(time.Now()) {
		delete(s.sessions, token)
		ok = false
	}
	s.mu.Unlock()

	if !ok {
		return nil, ErrSessionNotFound
	}
	return &session, nil
}

// Logout drops the session behind the token. Unknown tokens are a no-op.
func (s *Service) Logout(token string) {
	s.mu.Lock()
	session, ok := s.sessions[token]
	if ok {
		delete(s.sessions, token)
	}
	s.mu.Unlock()

	if ok {
		_ = s.persistUserSessions(session.UserID)
	}
}

// UserID derives the canonical user id from a name pair: "Asha" "Patel"
// becomes asha_patel. It is the folder name for the user's query history.
func UserID(firstName, lastName string) string {
	return fmt.Sprintf("%s_%s", strings.ToLower(firstName), strings.ToLower(lastName))
}

func (s *Service) loadSessions() error {
	if s.sessionsDir == "" {
		return nil
	}
	entries, err := os.ReadDir(s.sessionsDir)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read sessions dir: %w", err)
	}

	now := time.Now()
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), "session_") {
			continue
		}
		sessions, err := readSessionFile(filepath.Join(s.sessionsDir, entry.Name()))
		if err != nil {
			continue
		}
		for _, session := range sessions {
			if session.Token != "" && !session.Expired(now) {
				s.sessions[session.Token] = session
			}
		}
	}
	return nil
}

func (s *Service) persistUserSessions(userID string) error {
	if s.sessionsDir == "" {
		return nil
	}
	if err := os.MkdirAll(s.sessionsDir, 0o755); err != nil {
		return err
	}

	now := time.Now()
	var live []Session
	s.mu.Lock()
	for _, session := range s.sessions {
		if session.UserID == userID && !session.Expired(now) {
			live = append(live, session)
		}
	}
	s.mu.Unlock()

	path := filepath.Join(s.sessionsDir, fmt.Sprintf("session_%s.json", userID))
	if len(live) == 0 {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		return nil
	}

	data, err := json.MarshalIndent(live, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func readSessionFile(path string) ([]Session, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sessions []Session
	if err := json.Unmarshal(raw, &sessions); err != nil {
		return nil, errSessionFileCorrupt
	}
	return sessions, nil
}

func newToken(record userRecord) string {
	buf := make([]byte, 16)
	_, _ = rand.Read(buf)
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s%s%d%s", record.FirstName, record.LastName, time.Now().UnixNano(), hex.EncodeToString(buf))))
	return hex.EncodeToString(sum[:])
}
