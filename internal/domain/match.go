package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type MatchStatus string

const (
	MatchStatusPending   MatchStatus = "pending"
	MatchStatusDeclined  MatchStatus = "declined"
	MatchStatusReady     MatchStatus = "ready"
	MatchStatusCompleted MatchStatus = "completed"
)

var matchTransitions = map[MatchStatus][]MatchStatus{
	MatchStatusPending: {MatchStatusDeclined, MatchStatusReady},
	MatchStatusReady:   {MatchStatusCompleted},
}

// CanTransition reports whether the lifecycle allows moving from s to next.
// Declined and completed are terminal.
func (s MatchStatus) CanTransition(next MatchStatus) bool {
	for _, allowed := range matchTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type Match struct {
	ID           uuid.UUID      `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	CreatorID    uuid.UUID      `json:"creatorId" gorm:"type:uuid;not null;index"`
	InvitedID    uuid.UUID      `json:"invitedId" gorm:"type:uuid;not null;index"`
	CreatorPhoto string         `json:"creatorPhoto,omitempty" gorm:"type:text;not null"`
	InvitedPhoto *string        `json:"invitedPhoto,omitempty" gorm:"type:text"`
	CreatorScore *float64       `json:"creatorScore,omitempty" gorm:"type:double precision"`
	InvitedScore *float64       `json:"invitedScore,omitempty" gorm:"type:double precision"`
	WinnerID     *uuid.UUID     `json:"winnerId,omitempty" gorm:"type:uuid"`
	ScoreDetails datatypes.JSON `json:"scoreDetails,omitempty" gorm:"type:jsonb"`
	Status       MatchStatus    `json:"status" gorm:"type:varchar(20);not null;default:'pending';index"`
	CreatedAt    time.Time      `json:"createdAt" gorm:"index"`
	UpdatedAt    time.Time      `json:"updatedAt"`
}

func (m *Match) IsParticipant(userID uuid.UUID) bool {
	return m.CreatorID == userID || m.InvitedID == userID
}

// ForParticipant returns the copy a participant is allowed to see. Photos and
// scores only become visible once the match is completed.
func (m *Match) ForParticipant() *Match {
	view := *m
	if m.Status != MatchStatusCompleted {
		view.CreatorPhoto = ""
		view.InvitedPhoto = nil
		view.CreatorScore = nil
		view.InvitedScore = nil
		view.ScoreDetails = nil
	}
	return &view
}

// Summary is the photo-free form pushed to every connected browser.
func (m *Match) Summary() *Match {
	view := m.ForParticipant()
	view.CreatorPhoto = ""
	view.InvitedPhoto = nil
	return view
}

// PhotoScore is the per-photo breakdown returned by the scoring service.
type PhotoScore struct {
	Score       float64 `json:"score"`
	MaleScore   float64 `json:"maleScore"`
	FemaleScore float64 `json:"femaleScore"`
}

// ScoreDetails is persisted in Match.ScoreDetails.
type ScoreDetails struct {
	Creator PhotoScore `json:"creator"`
	Invited PhotoScore `json:"invited"`
	Draw    bool       `json:"draw"`
}

type CompareResult struct {
	CreatorScore float64 `json:"creatorScore"`
	InvitedScore float64 `json:"invitedScore"`
}

// MatchEvent names a state change pushed to connected browsers.
type MatchEvent string

const (
	MatchEventCreated MatchEvent = "match_created"
	MatchEventUpdated MatchEvent = "match_updated"
)
