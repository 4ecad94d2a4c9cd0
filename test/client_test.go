package test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/2beens/portfoliocms/internal/portfolio"
)

// newClient keeps cookies and does not follow redirects, so tests can assert them.
func newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func postLogin(ctx context.Context, t *testing.T, client *http.Client, email, password string) *http.Response {
	t.Helper()
	form := url.Values{"email": {email}, "password": {password}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, serverEndpoint+"/login", strings.NewReader(form.Encode()))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", "test-agent")

	resp, err := client.Do(req)
	require.NoError(t, err)
	return resp
}

// loggedInClient returns a client holding a valid admin session cookie.
func loggedInClient(ctx context.Context, t *testing.T) *http.Client {
	t.Helper()
	client := newClient(t)
	resp := postLogin(ctx, t, client, testEmail, testPassword)
	defer resp.Body.Close()
	require.Equal(t, http.StatusFound, resp.StatusCode)
	require.Equal(t, "/admin", resp.Header.Get("Location"))
	return client
}

func doJSON(ctx context.Context, t *testing.T, client *http.Client, method, path string, body any) (*http.Response, []byte) {
	t.Helper()

	var reqBody io.Reader = http.NoBody
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, serverEndpoint+path, reqBody)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "test-agent")

	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, respBytes
}

func addEntry(ctx context.Context, t *testing.T, client *http.Client, category string, entry any) string {
	t.Helper()
	resp, respBytes := doJSON(ctx, t, client, http.MethodPost, "/api/"+category, entry)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(respBytes))

	var addResp portfolio.SuccessResponse
	require.NoError(t, json.Unmarshal(respBytes, &addResp))
	require.True(t, addResp.Success)
	return addResp.ID
}

func getData(ctx context.Context, t *testing.T) map[string]any {
	t.Helper()
	resp, respBytes := doJSON(ctx, t, http.DefaultClient, http.MethodGet, "/api/data", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	tree := map[string]any{}
	require.NoError(t, json.Unmarshal(respBytes, &tree))
	return tree
}
