package main

import (
	"bytes"
	"context"
	"flag"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/subcommands"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2beens/portfoliocms/internal/auth"
)

func execute(t *testing.T, cmd subcommands.Command, args ...string) subcommands.ExitStatus {
	t.Helper()
	f := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	cmd.SetFlags(f)
	require.NoError(t, f.Parse(args))
	return cmd.Execute(context.Background(), f)
}

func TestReadPassword(t *testing.T) {
	password, err := readPassword("from-flag", strings.NewReader("from-stdin\n"))
	require.NoError(t, err)
	assert.Equal(t, "from-flag", password)

	password, err = readPassword("", strings.NewReader("from-stdin\r\nsecond line\n"))
	require.NoError(t, err)
	assert.Equal(t, "from-stdin", password)

	password, err = readPassword("", strings.NewReader("no-newline"))
	require.NoError(t, err)
	assert.Equal(t, "no-newline", password)

	_, err = readPassword("", strings.NewReader(""))
	assert.EqualError(t, err, "empty password")
}

func TestHashCmd(t *testing.T) {
	out := &bytes.Buffer{}
	cmd := &hashCmd{in: strings.NewReader("testpass\n"), out: out}

	status := execute(t, cmd)
	require.Equal(t, subcommands.ExitSuccess, status)

	hash := strings.TrimSpace(out.String())
	assert.True(t, strings.HasPrefix(hash, "$2a$"))
	assert.True(t, auth.VerifyPassword(hash, "testpass"))
}

func TestCreateAndVerifyCmd(t *testing.T) {
	file := filepath.Join(t.TempDir(), "admin_credentials.json")

	out := &bytes.Buffer{}
	create := &createCmd{in: strings.NewReader(""), out: out}
	status := execute(t, create, "-f", file, "-email", "Admin@Example.com", "-p", "testpass")
	require.Equal(t, subcommands.ExitSuccess, status)
	assert.Contains(t, out.String(), file)

	cred := auth.LoadAdminCredential(file)
	require.NotNil(t, cred)
	assert.Equal(t, "Admin@Example.com", cred.Email)

	cases := map[string]struct {
		email          string
		password       string
		expectedStatus subcommands.ExitStatus
		expectedOutput string
	}{
		"good creds, email case ignored": {
			email:          "admin@example.com",
			password:       "testpass",
			expectedStatus: subcommands.ExitSuccess,
			expectedOutput: "ok",
		},
		"wrong password": {
			email:          "admin@example.com",
			password:       "wrong",
			expectedStatus: subcommands.ExitFailure,
			expectedOutput: auth.MessageInvalidCredentials,
		},
		"wrong email": {
			email:          "someone@example.com",
			password:       "testpass",
			expectedStatus: subcommands.ExitFailure,
			expectedOutput: auth.MessageInvalidCredentials,
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			out := &bytes.Buffer{}
			verify := &verifyCmd{in: strings.NewReader(tc.password + "\n"), out: out}
			status := execute(t, verify, "-f", file, "-email", tc.email)
			assert.Equal(t, tc.expectedStatus, status)
			assert.Equal(t, tc.expectedOutput, strings.TrimSpace(out.String()))
		})
	}
}

func TestCreateCmd_MissingEmail(t *testing.T) {
	file := filepath.Join(t.TempDir(), "admin_credentials.json")
	create := &createCmd{in: strings.NewReader("testpass\n"), out: &bytes.Buffer{}}

	status := execute(t, create, "-f", file)
	assert.Equal(t, subcommands.ExitUsageError, status)
	assert.Nil(t, auth.LoadAdminCredential(file))
}

func TestVerifyCmd_MissingFile(t *testing.T) {
	verify := &verifyCmd{in: strings.NewReader("testpass\n"), out: &bytes.Buffer{}}

	status := execute(t, verify, "-f", filepath.Join(t.TempDir(), "nope.json"), "-email", "admin@example.com")
	assert.Equal(t, subcommands.ExitFailure, status)
}
