package service

import (
	"errors"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

var ErrWrongPassword = errors.New("wrong password")

// AuthService is the admin gate: a two-state machine, locked or unlocked.
// There is a single shared secret, no accounts, no lockout and no rate
// limiting; the secret lives as a bcrypt hash in configuration, never in
// code.
type AuthService struct {
	secretHash []byte

	mu       sync.Mutex
	unlocked bool
}

func NewAuthService(secretHash string) *AuthService {
	return &AuthService{
		secretHash: []byte(secretHash),
	}
}

// Authenticate unlocks the gate when password matches the configured
// secret. On mismatch the gate stays locked.
func (s *AuthService) Authenticate(password string) error {
	if err := bcrypt.CompareHashAndPassword(s.secretHash, []byte(password)); err != nil {
		return ErrWrongPassword
	}

	s.mu.Lock()
	s.unlocked = true
	s.mu.Unlock()

	return nil
}

// Close returns the gate to locked regardless of its prior state.
func (s *AuthService) Close() {
	s.mu.Lock()
	s.unlocked = false
	s.mu.Unlock()
}

func (s *AuthService) Unlocked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.unlocked
}
