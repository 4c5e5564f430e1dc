package domain_test

import (
	"testing"

	"github.com/dom/faceoff/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"gorm.io/datatypes"
)

func TestMatchStatus_CanTransition(t *testing.T) {
	tests := []struct {
		from domain.MatchStatus
		to   domain.MatchStatus
		want bool
	}{
		{domain.MatchStatusPending, domain.MatchStatusReady, true},
		{domain.MatchStatusPending, domain.MatchStatusDeclined, true},
		{domain.MatchStatusPending, domain.MatchStatusCompleted, false},
		{domain.MatchStatusReady, domain.MatchStatusCompleted, true},
		{domain.MatchStatusReady, domain.MatchStatusDeclined, false},
		{domain.MatchStatusReady, domain.MatchStatusPending, false},
		{domain.MatchStatusDeclined, domain.MatchStatusReady, false},
		{domain.MatchStatusCompleted, domain.MatchStatusReady, false},
		{domain.MatchStatusCompleted, domain.MatchStatusCompleted, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransition(tt.to))
		})
	}
}

func TestMatch_ForParticipant(t *testing.T) {
	invitedPhoto := "aW52aXRlZA=="
	creatorScore := 72.4
	invitedScore := 65.1

	base := domain.Match{
		ID:           uuid.New(),
		CreatorID:    uuid.New(),
		InvitedID:    uuid.New(),
		CreatorPhoto: "Y3JlYXRvcg==",
		InvitedPhoto: &invitedPhoto,
		CreatorScore: &creatorScore,
		InvitedScore: &invitedScore,
		ScoreDetails: datatypes.JSON(`{"draw":false}`),
	}

	t.Run("ready match hides photos and scores", func(t *testing.T) {
		m := base
		m.Status = domain.MatchStatusReady

		view := m.ForParticipant()
		assert.Empty(t, view.CreatorPhoto)
		assert.Nil(t, view.InvitedPhoto)
		assert.Nil(t, view.CreatorScore)
		assert.Nil(t, view.InvitedScore)
		assert.Nil(t, view.ScoreDetails)

		// original untouched
		assert.Equal(t, "Y3JlYXRvcg==", m.CreatorPhoto)
	})

	t.Run("completed match shows everything", func(t *testing.T) {
		m := base
		m.Status = domain.MatchStatusCompleted

		view := m.ForParticipant()
		assert.Equal(t, m.CreatorPhoto, view.CreatorPhoto)
		assert.Equal(t, 72.4, *view.CreatorScore)
	})

	t.Run("summary never carries photos", func(t *testing.T) {
		m := base
		m.Status = domain.MatchStatusCompleted

		view := m.Summary()
		assert.Empty(t, view.CreatorPhoto)
		assert.Nil(t, view.InvitedPhoto)
		assert.Equal(t, 65.1, *view.InvitedScore)
	})
}

func TestMatch_IsParticipant(t *testing.T) {
	m := domain.Match{CreatorID: uuid.New(), InvitedID: uuid.New()}

	assert.True(t, m.IsParticipant(m.CreatorID))
	assert.True(t, m.IsParticipant(m.InvitedID))
	assert.False(t, m.IsParticipant(uuid.New()))
}
