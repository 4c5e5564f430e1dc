package domain_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/dom/faceoff/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestError_IsMatchesKind(t *testing.T) {
	err := fmt.Errorf("respond: %w", domain.NotFound("Match not found"))

	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.NotErrorIs(t, err, domain.ErrForbidden)
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
	assert.Equal(t, "Match not found", domain.MessageOf(err))
}

func TestError_UnwrapsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := domain.Upstream("No face detected in the image", cause)

	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, domain.ErrUpstream)
}

func TestKindOf_PlainError(t *testing.T) {
	err := errors.New("boom")

	assert.Equal(t, domain.KindUnexpected, domain.KindOf(err))
	assert.Equal(t, "An unexpected error occurred", domain.MessageOf(err))
}
