package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readJSONBody(t *testing.T, resp *http.Response) []byte {
	t.Helper()

	assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json"),
		"content type %q", resp.Header.Get("Content-Type"))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err, "failed to read response body")
	return body
}

// AssertJSONResponse decodes the JSON body of resp into v.
func AssertJSONResponse(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()

	body := readJSONBody(t, resp)
	require.NoError(t, json.Unmarshal(body, v), "failed to unmarshal response: %s", string(body))
}

// AssertErrorResponse checks the status and the {"message"} body every
// failed request carries.
func AssertErrorResponse(t *testing.T, resp *http.Response, expectedStatus int, expectedMessage string) {
	t.Helper()

	assert.Equal(t, expectedStatus, resp.StatusCode, "unexpected status code")

	var payload struct {
		Message string `json:"message"`
	}
	body := readJSONBody(t, resp)
	require.NoError(t, json.Unmarshal(body, &payload), "error body is not JSON: %s", string(body))
	assert.Equal(t, expectedMessage, payload.Message, "error message mismatch")
}
