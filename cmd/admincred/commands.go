package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/subcommands"

	"github.com/2beens/portfoliocms/internal/auth"
	"github.com/2beens/portfoliocms/pkg"
)

const defaultCredentialFile = "admin_credentials.json"

func commands(in io.Reader, out io.Writer) []subcommands.Command {
	return []subcommands.Command{
		&hashCmd{in: in, out: out},
		&createCmd{in: in, out: out},
		&verifyCmd{in: in, out: out},
	}
}

// readPassword returns flagValue, or the first line of in when the flag is empty.
func readPassword(flagValue string, in io.Reader) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", errors.New("empty password")
	}
	return password, nil
}

type hashCmd struct {
	in       io.Reader
	out      io.Writer
	password string
}

func (*hashCmd) Name() string     { return "hash" }
func (*hashCmd) Synopsis() string { return "print the bcrypt hash of a password" }
func (*hashCmd) Usage() string {
	return `admincred hash [-p <password>]

  Prints the bcrypt hash of the password. Without -p the password is read
  from the first line of stdin.
`
}

func (c *hashCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.password, "p", "", "password to hash (read from stdin when empty)")
}

func (c *hashCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	password, err := readPassword(c.password, c.in)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	hash, err := pkg.HashPassword(password)
	if err != nil {
		fmt.Fprintf(os.Stderr, "hash password: %v\n", err)
		return subcommands.ExitFailure
	}

	fmt.Fprintln(c.out, hash)
	return subcommands.ExitSuccess
}

type createCmd struct {
	in       io.Reader
	out      io.Writer
	file     string
	email    string
	password string
}

func (*createCmd) Name() string     { return "create" }
func (*createCmd) Synopsis() string { return "write the admin credential file" }
func (*createCmd) Usage() string {
	return `admincred create -email <email> [-p <password>] [-f <file>]

  Hashes the password with bcrypt and writes the credential file, replacing
  any existing one. Without -p the password is read from stdin.
`
}

func (c *createCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.file, "f", defaultCredentialFile, "credential file path")
	f.StringVar(&c.email, "email", "", "admin email")
	f.StringVar(&c.password, "p", "", "admin password (read from stdin when empty)")
}

func (c *createCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	email := strings.TrimSpace(c.email)
	if email == "" {
		fmt.Fprintln(os.Stderr, "-email is required")
		return subcommands.ExitUsageError
	}

	password, err := readPassword(c.password, c.in)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	hash, err := pkg.HashPassword(password)
	if err != nil {
		fmt.Fprintf(os.Stderr, "hash password: %v\n", err)
		return subcommands.ExitFailure
	}

	cred := &auth.AdminCredential{Email: email, PasswordHash: hash}
	if err := cred.Save(c.file); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	fmt.Fprintf(c.out, "credential for %s written to %s\n", email, c.file)
	return subcommands.ExitSuccess
}

type verifyCmd struct {
	in       io.Reader
	out      io.Writer
	file     string
	email    string
	password string
}

func (*verifyCmd) Name() string     { return "verify" }
func (*verifyCmd) Synopsis() string { return "check an email and password against the credential file" }
func (*verifyCmd) Usage() string {
	return `admincred verify -email <email> [-p <password>] [-f <file>]

  Runs the same check as the login form. Exits with a failure status when
  the credentials are rejected.
`
}

func (c *verifyCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.file, "f", defaultCredentialFile, "credential file path")
	f.StringVar(&c.email, "email", "", "admin email")
	f.StringVar(&c.password, "p", "", "admin password (read from stdin when empty)")
}

func (c *verifyCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	password, err := readPassword(c.password, c.in)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	cred := auth.LoadAdminCredential(c.file)
	if cred == nil {
		fmt.Fprintf(os.Stderr, "no usable credential in %s\n", c.file)
		return subcommands.ExitFailure
	}

	if err := auth.Authenticate(c.email, password, cred); err != nil {
		fmt.Fprintln(c.out, auth.FailureMessage(err))
		return subcommands.ExitFailure
	}

	fmt.Fprintln(c.out, "ok")
	return subcommands.ExitSuccess
}
