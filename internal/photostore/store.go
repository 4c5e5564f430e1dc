// Package photostore keeps uploaded match photos and hands back the bytes
// when a comparison needs them.
package photostore

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"regexp"
)

var ErrInvalidRef = errors.New("invalid photo reference")

// Store persists photos. Put returns an opaque reference that is saved on
// the match row; Get turns that reference back into image bytes. Delete
// discards a photo whose row was never written.
type Store interface {
	Put(ctx context.Context, owner string, data []byte, contentType string) (string, error)
	Get(ctx context.Context, ref string) ([]byte, error)
	Delete(ctx context.Context, ref string) error
}

var dataURLPrefix = regexp.MustCompile(`^data:image/\w+;base64,`)

// InlineStore keeps the photo in the reference itself as base64.
type InlineStore struct{}

func NewInlineStore() *InlineStore {
	return &InlineStore{}
}

func (s *InlineStore) Put(_ context.Context, _ string, data []byte, _ string) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("empty photo")
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

func (s *InlineStore) Get(_ context.Context, ref string) ([]byte, error) {
	return decodeInline(ref)
}

// Delete is a no-op: the bytes only live in the reference.
func (s *InlineStore) Delete(context.Context, string) error {
	return nil
}

// decodeInline accepts plain base64 or a data URL.
func decodeInline(ref string) ([]byte, error) {
	if ref == "" {
		return nil, ErrInvalidRef
	}
	raw := dataURLPrefix.ReplaceAllString(ref, "")
	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRef, err)
	}
	return data, nil
}
