package testutil

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/textproto"
	"testing"
	"time"

	"github.com/dom/faceoff/internal/domain"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// UserBuilder creates test users with a builder pattern
type UserBuilder struct {
	username string
	password string
	score    int
}

// NewUserBuilder creates a new UserBuilder with default values
func NewUserBuilder() *UserBuilder {
	return &UserBuilder{
		username: fmt.Sprintf("testuser_%s", uuid.New().String()[:8]),
		password: "testpassword123",
	}
}

func (b *UserBuilder) WithUsername(name string) *UserBuilder {
	b.username = name
	return b
}

func (b *UserBuilder) WithPassword(password string) *UserBuilder {
	b.password = password
	return b
}

func (b *UserBuilder) WithScore(score int) *UserBuilder {
	b.score = score
	return b
}

func (b *UserBuilder) user(t *testing.T) *domain.User {
	t.Helper()

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(b.password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	return &domain.User{
		ID:           uuid.New(),
		Username:     b.username,
		PasswordHash: string(hashedPassword),
		Score:        b.score,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
}

// Build creates the user in the database and returns the user with the raw password
func (b *UserBuilder) Build(t *testing.T, db *gorm.DB) (*domain.User, string) {
	t.Helper()

	user := b.user(t)
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return user, b.password
}

// BuildInMemory creates the user in the in-memory store
func (b *UserBuilder) BuildInMemory(t *testing.T, store *MemoryStore) (*domain.User, string) {
	t.Helper()

	user := b.user(t)
	if err := store.Repositories().User.Create(context.Background(), user); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return user, b.password
}

// MatchBuilder creates test matches between two users
type MatchBuilder struct {
	creator      *domain.User
	invited      *domain.User
	creatorPhoto []byte
	invitedPhoto []byte
	status       domain.MatchStatus
	createdAt    time.Time
}

func NewMatchBuilder(creator, invited *domain.User) *MatchBuilder {
	return &MatchBuilder{
		creator:      creator,
		invited:      invited,
		creatorPhoto: []byte("creator-photo"),
		status:       domain.MatchStatusPending,
		createdAt:    time.Now(),
	}
}

// Ready gives the match an invited photo and moves it to ready
func (b *MatchBuilder) Ready() *MatchBuilder {
	if b.invitedPhoto == nil {
		b.invitedPhoto = []byte("invited-photo")
	}
	b.status = domain.MatchStatusReady
	return b
}

func (b *MatchBuilder) WithPhotos(creator, invited []byte) *MatchBuilder {
	b.creatorPhoto = creator
	b.invitedPhoto = invited
	return b
}

func (b *MatchBuilder) WithStatus(status domain.MatchStatus) *MatchBuilder {
	b.status = status
	return b
}

func (b *MatchBuilder) CreatedAt(at time.Time) *MatchBuilder {
	b.createdAt = at
	return b
}

func (b *MatchBuilder) match() *domain.Match {
	m := &domain.Match{
		ID:           uuid.New(),
		CreatorID:    b.creator.ID,
		InvitedID:    b.invited.ID,
		CreatorPhoto: base64.StdEncoding.EncodeToString(b.creatorPhoto),
		Status:       b.status,
		CreatedAt:    b.createdAt,
		UpdatedAt:    b.createdAt,
	}
	if b.invitedPhoto != nil {
		ref := base64.StdEncoding.EncodeToString(b.invitedPhoto)
		m.InvitedPhoto = &ref
	}
	return m
}

// Build creates the match in the database
func (b *MatchBuilder) Build(t *testing.T, db *gorm.DB) *domain.Match {
	t.Helper()

	m := b.match()
	if err := db.Create(m).Error; err != nil {
		t.Fatalf("failed to create match: %v", err)
	}
	return m
}

// BuildInMemory creates the match in the in-memory store
func (b *MatchBuilder) BuildInMemory(t *testing.T, store *MemoryStore) *domain.Match {
	t.Helper()

	m := b.match()
	if err := store.Repositories().Match.Create(context.Background(), m); err != nil {
		t.Fatalf("failed to create match: %v", err)
	}
	return m
}

// NewSessionClient returns an HTTP client with its own cookie jar
func NewSessionClient(t *testing.T) *http.Client {
	t.Helper()

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("failed to create cookie jar: %v", err)
	}
	return &http.Client{Jar: jar, Timeout: 10 * time.Second}
}

// SignUp registers a user through the API and returns a client carrying
// the session cookie.
func (ts *TestServer) SignUp(t *testing.T, username, password string) (*http.Client, *domain.User) {
	t.Helper()

	client := NewSessionClient(t)
	body, _ := json.Marshal(map[string]string{"username": username, "password": password})

	resp, err := client.Post(ts.URL("/api/register"), "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("failed to register user: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("unexpected status code: %d", resp.StatusCode)
	}

	var user domain.User
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return client, &user
}

// MultipartPhoto builds a multipart body with a "photo" file part and the
// given form fields. A nil photo omits the file part.
func MultipartPhoto(t *testing.T, fields map[string]string, filename, contentType string, photo []byte) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("failed to write field: %v", err)
		}
	}

	if photo != nil {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="photo"; filename="%s"`, filename))
		header.Set("Content-Type", contentType)
		part, err := w.CreatePart(header)
		if err != nil {
			t.Fatalf("failed to create part: %v", err)
		}
		part.Write(photo)
	}

	if err := w.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}
	return &buf, w.FormDataContentType()
}
