package auth

import (
	"encoding/json"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
)

// AdminCredential is the single admin account, kept in a local JSON file
// and produced out-of-band (see cmd/admincred).
type AdminCredential struct {
	Email        string `json:"email"`
	PasswordHash string `json:"password_hash"`
}

// LoadAdminCredential reads the credential file at path. It returns nil when
// the file is missing, unreadable, malformed or incomplete.
func LoadAdminCredential(path string) *AdminCredential {
	content, err := os.ReadFile(path)
	if err != nil {
		log.Warnf("load admin credential %s: %s", path, err)
		return nil
	}

	var cred AdminCredential
	if err := json.Unmarshal(content, &cred); err != nil {
		log.Warnf("parse admin credential %s: %s", path, err)
		return nil
	}

	if strings.TrimSpace(cred.Email) == "" || cred.PasswordHash == "" {
		log.Warnf("admin credential %s: email or password hash missing", path)
		return nil
	}

	return &cred
}

// Save writes the credential to path, readable only by the owner.
func (c *AdminCredential) Save(path string) error {
	content, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(content, '\n'), 0o600)
}
