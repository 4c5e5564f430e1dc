package service

import "time"

// SetClock replaces the time source used for sessions.
func (s *AuthService) SetClock(now func() time.Time) {
	s.now = now
}
