// Common helpers for E2E tests: request builders and response decoding.
package e2e_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

// doRequest sends method path with an optional JSON body and returns the
// response with its body already read.
func doRequest(t *testing.T, method, path string, body interface{}) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err, "marshal request body")
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, env.baseURL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-E2E-Test", "true")

	resp, err := env.httpClient.Do(req)
	require.NoError(t, err, "%s %s", method, path)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	t.Logf("%s %s -> %d", method, path, resp.StatusCode)
	return resp, raw
}

func doGet(t *testing.T, path string) (*http.Response, []byte) {
	t.Helper()
	return doRequest(t, http.MethodGet, path, nil)
}

func doPost(t *testing.T, path string, body interface{}) (*http.Response, []byte) {
	t.Helper()
	return doRequest(t, http.MethodPost, path, body)
}

// requireStatus fails with the body when the status code differs.
func requireStatus(t *testing.T, resp *http.Response, body []byte, expected int) {
	t.Helper()
	require.Equal(t, expected, resp.StatusCode, "body: %s", body)
}

// decode unmarshals a JSON body into a generic map.
func decode(t *testing.T, body []byte) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &out), "body: %s", body)
	return out
}

//Personal.AI order the ending
