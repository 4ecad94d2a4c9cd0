package test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (s *IntegrationTestSuite) storedCategory(ctx context.Context, category string) map[string]any {
	var raw []byte
	err := s.DB.QueryRowContext(
		ctx,
		`SELECT doc #> $1 FROM portfolio_document WHERE id = 1;`,
		"{portfolio,"+category+"}",
	).Scan(&raw)
	s.Require().NoError(err)

	if raw == nil {
		return nil
	}
	stored := map[string]any{}
	s.Require().NoError(json.Unmarshal(raw, &stored))
	return stored
}

func (s *IntegrationTestSuite) TestAppendCategory() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := loggedInClient(ctx, t)

	firstTitle := gofakeit.LetterN(12)
	secondTitle := gofakeit.LetterN(12)
	firstID := addEntry(ctx, t, client, "projects", map[string]any{"title": firstTitle, "url": gofakeit.URL()})
	// generated keys sort by creation time
	time.Sleep(2 * time.Millisecond)
	secondID := addEntry(ctx, t, client, "projects", map[string]any{"title": secondTitle})

	require.NotEmpty(t, firstID)
	require.NotEmpty(t, secondID)
	assert.NotEqual(t, firstID, secondID)
	assert.Less(t, firstID, secondID)

	projects, ok := getData(ctx, t)["projects"].(map[string]any)
	require.True(t, ok)
	require.Len(t, projects, 2)
	assert.Equal(t, firstTitle, projects[firstID].(map[string]any)["title"])
	assert.Equal(t, secondTitle, projects[secondID].(map[string]any)["title"])

	stored := s.storedCategory(ctx, "projects")
	assert.Len(t, stored, 2)
	assert.Contains(t, stored, firstID)
	assert.Contains(t, stored, secondID)

	resp, err := http.Get(serverEndpoint + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), firstTitle)
	assert.Contains(t, string(body), secondTitle)
}

func (s *IntegrationTestSuite) TestOverwriteCategory() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := loggedInClient(ctx, t)

	firstName := gofakeit.LetterN(10)
	secondName := gofakeit.LetterN(10)
	assert.Empty(t, addEntry(ctx, t, client, "profile", map[string]any{"name": firstName, "title": "engineer"}))
	assert.Empty(t, addEntry(ctx, t, client, "profile", map[string]any{"name": secondName}))

	profile, ok := getData(ctx, t)["profile"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, map[string]any{"name": secondName}, profile)
	assert.Equal(t, map[string]any{"name": secondName}, s.storedCategory(ctx, "profile"))

	addEntry(ctx, t, client, "description", map[string]any{"text": "**bold** claim"})
	resp, err := http.Get(serverEndpoint + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), secondName)
	assert.Contains(t, string(body), "<strong>bold</strong>")
}

func (s *IntegrationTestSuite) TestUpdateAndDeleteEntry() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := loggedInClient(ctx, t)
	id := addEntry(ctx, t, client, "skills", map[string]any{"name": "go", "level": "good"})

	resp, body := doJSON(ctx, t, client, http.MethodPut, "/api/skills/"+id, map[string]any{"level": "great"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.JSONEq(t, `{"success":true}`, string(body))

	// POST on an item path is an update too
	resp, body = doJSON(ctx, t, client, http.MethodPost, "/api/skills/"+id, map[string]any{"years": 7})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	skills := getData(ctx, t)["skills"].(map[string]any)
	assert.Equal(t, map[string]any{"name": "go", "level": "great", "years": float64(7)}, skills[id])

	resp, body = doJSON(ctx, t, client, http.MethodDelete, "/api/skills/"+id, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.JSONEq(t, `{"success":true}`, string(body))
	assert.NotContains(t, getData(ctx, t), "skills")
	assert.Nil(t, s.storedCategory(ctx, "skills"))

	// deleting a missing item still succeeds
	resp, _ = doJSON(ctx, t, client, http.MethodDelete, "/api/skills/"+id, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func (s *IntegrationTestSuite) TestMalformedBody() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := loggedInClient(ctx, t)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, serverEndpoint+"/api/projects", strings.NewReader(`{"title":`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Empty(t, getData(ctx, t))
}

func (s *IntegrationTestSuite) TestDiagnostics() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := loggedInClient(ctx, t)
	addEntry(ctx, t, client, "projects", map[string]any{"title": "diag"})

	resp, body := doJSON(ctx, t, http.DefaultClient, http.MethodGet, "/db_test", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var dbTest map[string]any
	require.NoError(t, json.Unmarshal(body, &dbTest))
	assert.Equal(t, true, dbTest["connected"])
	assert.Contains(t, dbTest["sample_preview"], "portfolio")

	resp, body = doJSON(ctx, t, http.DefaultClient, http.MethodGet, "/firebase_status", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var status map[string]any
	require.NoError(t, json.Unmarshal(body, &status))
	assert.Equal(t, "postgres", status["store_backend"])
	dbProbe, ok := status["db_test"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, dbProbe["ok"])
}

func (s *IntegrationTestSuite) TestMetrics() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := loggedInClient(ctx, t)
	addEntry(ctx, t, client, "projects", map[string]any{"title": "metrics"})

	resp, err := http.Get(metricsEndpoint)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	metrics := string(body)
	assert.Contains(t, metrics, `backend_main_portfolio_writes{category="projects",op="push"}`)
	assert.Contains(t, metrics, `backend_main_store_connected 1`)
	assert.Contains(t, metrics, `backend_main_login_attempts{result="ok"}`)
	assert.Contains(t, metrics, "pgxpool_")
}
