package test

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2beens/portfoliocms/internal/auth"
)

func (s *IntegrationTestSuite) TestLogin() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cases := map[string]struct {
		email              string
		password           string
		expectedStatusCode int
		expectedLocation   string
		expectedMessage    string
	}{
		"good creds": {
			email:              testEmail,
			password:           testPassword,
			expectedStatusCode: http.StatusFound,
			expectedLocation:   "/admin",
		},
		"good creds, email in upper case": {
			email:              strings.ToUpper(testEmail),
			password:           testPassword,
			expectedStatusCode: http.StatusFound,
			expectedLocation:   "/admin",
		},
		"bad password": {
			email:              testEmail,
			password:           "bad-password",
			expectedStatusCode: http.StatusOK,
			expectedMessage:    auth.MessageInvalidCredentials,
		},
		"unknown email": {
			email:              gofakeit.Email(),
			password:           testPassword,
			expectedStatusCode: http.StatusOK,
			expectedMessage:    auth.MessageInvalidCredentials,
		},
		"empty password": {
			email:              testEmail,
			password:           "",
			expectedStatusCode: http.StatusOK,
			expectedMessage:    auth.MessageFieldsRequired,
		},
		"empty email": {
			email:              "",
			password:           testPassword,
			expectedStatusCode: http.StatusOK,
			expectedMessage:    auth.MessageFieldsRequired,
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			resp := postLogin(ctx, t, newClient(t), tc.email, tc.password)
			defer resp.Body.Close()
			require.Equal(t, tc.expectedStatusCode, resp.StatusCode)

			if tc.expectedLocation != "" {
				assert.Equal(t, tc.expectedLocation, resp.Header.Get("Location"))
				return
			}

			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			assert.Contains(t, string(body), tc.expectedMessage)
		})
	}
}

func (s *IntegrationTestSuite) TestLogin_SessionKeptInRedis() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	before, err := s.redisClient.SCard(ctx, "portfolio-admin-sessions").Result()
	require.NoError(t, err)

	client := loggedInClient(ctx, t)

	after, err := s.redisClient.SCard(ctx, "portfolio-admin-sessions").Result()
	require.NoError(t, err)
	assert.Equal(t, before+1, after)

	resp, err := client.Get(serverEndpoint + "/admin")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = client.Get(serverEndpoint + "/logout")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))

	afterLogout, err := s.redisClient.SCard(ctx, "portfolio-admin-sessions").Result()
	require.NoError(t, err)
	assert.Equal(t, before, afterLogout)

	resp, err = client.Get(serverEndpoint + "/admin")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))
}

func (s *IntegrationTestSuite) TestWritesWithoutSession() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := newClient(t)
	for _, tc := range []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/api/projects"},
		{http.MethodPut, "/api/projects/some-id"},
		{http.MethodPost, "/api/projects/some-id"},
		{http.MethodDelete, "/api/projects/some-id"},
	} {
		resp, body := doJSON(ctx, t, client, tc.method, tc.path, map[string]any{"title": gofakeit.Word()})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, tc.method+" "+tc.path)
		assert.JSONEq(t, `{"error":"unauthorized"}`, string(body))
	}

	assert.Empty(t, getData(ctx, t))
}
