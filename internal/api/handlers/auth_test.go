package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/dom/faceoff/internal/api/middleware"
	"github.com/dom/faceoff/internal/domain"
	"github.com/dom/faceoff/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func postJSON(t *testing.T, client *http.Client, url string, body interface{}) *http.Response {
	t.Helper()

	data, err := json.Marshal(body)
	require.NoError(t, err)

	resp, err := client.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func sessionCookie(resp *http.Response) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == middleware.SessionCookieName {
			return c
		}
	}
	return nil
}

func TestAuthHandler_Register(t *testing.T) {
	ts := testutil.NewTestServer(t)
	ts.SignUp(t, "existinguser", "password123")

	tests := []struct {
		name           string
		request        interface{}
		expectedStatus int
		expectedError  string
	}{
		{
			name:           "successful registration",
			request:        map[string]string{"username": "newuser", "password": "password123"},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "missing username",
			request:        map[string]string{"password": "password123"},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "Username and password are required",
		},
		{
			name:           "missing password",
			request:        map[string]string{"username": "someone"},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "Username and password are required",
		},
		{
			name:           "duplicate username",
			request:        map[string]string{"username": "existinguser", "password": "password123"},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "Username already exists",
		},
		{
			name:           "malformed body",
			request:        "not an object",
			expectedStatus: http.StatusBadRequest,
			expectedError:  "Invalid request body",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postJSON(t, testutil.NewSessionClient(t), ts.URL("/api/register"), tt.request)

			if tt.expectedError != "" {
				testutil.AssertErrorResponse(t, resp, tt.expectedStatus, tt.expectedError)
				assert.Nil(t, sessionCookie(resp))
				return
			}

			require.Equal(t, tt.expectedStatus, resp.StatusCode)

			var user domain.User
			testutil.AssertJSONResponse(t, resp, &user)
			assert.Equal(t, "newuser", user.Username)
			assert.Equal(t, 0, user.Score)

			cookie := sessionCookie(resp)
			require.NotNil(t, cookie)
			assert.True(t, cookie.HttpOnly)
			assert.NotEmpty(t, cookie.Value)
		})
	}
}

func TestAuthHandler_RegisterDoesNotLeakPasswordHash(t *testing.T) {
	ts := testutil.NewTestServer(t)

	resp := postJSON(t, testutil.NewSessionClient(t), ts.URL("/api/register"),
		map[string]string{"username": "alice", "password": "password123"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var raw map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&raw))
	assert.NotContains(t, raw, "passwordHash")
	assert.NotContains(t, raw, "password")
	assert.Contains(t, raw, "id")
}

func TestAuthHandler_Login(t *testing.T) {
	ts := testutil.NewTestServer(t)
	ts.SignUp(t, "alice", "password123")

	tests := []struct {
		name           string
		request        map[string]string
		expectedStatus int
		expectedError  string
	}{
		{
			name:           "valid credentials",
			request:        map[string]string{"username": "alice", "password": "password123"},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "wrong password",
			request:        map[string]string{"username": "alice", "password": "wrong"},
			expectedStatus: http.StatusUnauthorized,
			expectedError:  "Invalid username or password",
		},
		{
			name:           "unknown user",
			request:        map[string]string{"username": "nobody", "password": "password123"},
			expectedStatus: http.StatusUnauthorized,
			expectedError:  "Invalid username or password",
		},
		{
			name:           "missing fields",
			request:        map[string]string{},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "Username and password are required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := testutil.NewSessionClient(t)
			resp := postJSON(t, client, ts.URL("/api/login"), tt.request)

			if tt.expectedError != "" {
				testutil.AssertErrorResponse(t, resp, tt.expectedStatus, tt.expectedError)
				return
			}

			require.Equal(t, tt.expectedStatus, resp.StatusCode)
			var user domain.User
			testutil.AssertJSONResponse(t, resp, &user)
			assert.Equal(t, "alice", user.Username)

			me, err := client.Get(ts.URL("/api/user"))
			require.NoError(t, err)
			defer me.Body.Close()
			assert.Equal(t, http.StatusOK, me.StatusCode)
		})
	}
}

func TestAuthHandler_Me(t *testing.T) {
	ts := testutil.NewTestServer(t)
	client, user := ts.SignUp(t, "alice", "password123")

	t.Run("authenticated", func(t *testing.T) {
		resp, err := client.Get(ts.URL("/api/user"))
		require.NoError(t, err)
		defer resp.Body.Close()

		var me domain.User
		testutil.AssertJSONResponse(t, resp, &me)
		assert.Equal(t, user.ID, me.ID)
		assert.Equal(t, "alice", me.Username)
	})

	t.Run("no cookie", func(t *testing.T) {
		resp, err := http.Get(ts.URL("/api/user"))
		require.NoError(t, err)
		defer resp.Body.Close()

		testutil.AssertErrorResponse(t, resp, http.StatusUnauthorized, "Not authenticated")
	})

	t.Run("forged cookie", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodGet, ts.URL("/api/user"), nil)
		require.NoError(t, err)
		req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: "eyJhbGciOiJub25lIn0.e30."})

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		testutil.AssertErrorResponse(t, resp, http.StatusUnauthorized, "Not authenticated")
	})
}

func TestAuthHandler_Logout(t *testing.T) {
	ts := testutil.NewTestServer(t)
	client, _ := ts.SignUp(t, "alice", "password123")

	// Keep the raw token to prove the session is dead server-side, not
	// just dropped from the jar.
	req, err := http.NewRequest(http.MethodGet, ts.URL("/api/user"), nil)
	require.NoError(t, err)
	cookies := client.Jar.Cookies(req.URL)
	require.Len(t, cookies, 1)
	token := cookies[0].Value

	resp, err := client.Post(ts.URL("/api/logout"), "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	var msg struct {
		Message string `json:"message"`
	}
	testutil.AssertJSONResponse(t, resp, &msg)
	assert.Equal(t, "Logged out", msg.Message)
	assert.Equal(t, 0, ts.Store.SessionCount())

	req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: token})
	me, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer me.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, me.StatusCode)
}

func TestAuthHandler_DeleteAccount(t *testing.T) {
	ts := testutil.NewTestServer(t)
	client, user := ts.SignUp(t, "alice", "password123")

	req, err := http.NewRequest(http.MethodDelete, ts.URL("/api/user"), nil)
	require.NoError(t, err)
	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Nil(t, ts.Store.User(user.ID))

	login := postJSON(t, testutil.NewSessionClient(t), ts.URL("/api/login"),
		map[string]string{"username": "alice", "password": "password123"})
	assert.Equal(t, http.StatusUnauthorized, login.StatusCode)
}

func TestHealth(t *testing.T) {
	ts := testutil.NewTestServer(t)

	resp, err := http.Get(ts.URL("/health"))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
