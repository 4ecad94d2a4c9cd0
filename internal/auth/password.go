package auth

import (
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"hash"
	"strconv"
	"strings"

	"golang.org/x/crypto/pbkdf2"
	"golang.org/x/crypto/scrypt"

	"github.com/2beens/portfoliocms/pkg"
)

const (
	defaultPBKDF2Iterations = 600000
	scryptKeyLen            = 64
)

// VerifyPassword reports whether password matches hash. Supported formats are
// bcrypt and the werkzeug "pbkdf2:..." and "scrypt:..." hashes, so credential
// files produced by werkzeug's generate_password_hash keep working.
func VerifyPassword(hash, password string) bool {
	switch {
	case strings.HasPrefix(hash, "$2a$"), strings.HasPrefix(hash, "$2b$"), strings.HasPrefix(hash, "$2y$"):
		return pkg.CheckPasswordHash(password, hash)
	case strings.HasPrefix(hash, "pbkdf2:"), strings.HasPrefix(hash, "scrypt:"):
		return verifyWerkzeugHash(hash, password)
	default:
		return false
	}
}

// werkzeug format: method$salt$hexdigest
func verifyWerkzeugHash(encoded, password string) bool {
	parts := strings.SplitN(encoded, "$", 3)
	if len(parts) != 3 {
		return false
	}
	method, salt, expectedHex := parts[0], parts[1], parts[2]

	expected, err := hex.DecodeString(expectedHex)
	if err != nil || len(expected) == 0 {
		return false
	}

	derived, ok := deriveWerkzeugKey(method, []byte(salt), []byte(password))
	if !ok {
		return false
	}

	return subtle.ConstantTimeCompare(derived, expected) == 1
}

func deriveWerkzeugKey(method string, salt, password []byte) ([]byte, bool) {
	args := strings.Split(method, ":")
	switch args[0] {
	case "pbkdf2":
		hashName := "sha256"
		if len(args) > 1 {
			hashName = args[1]
		}
		iterations := defaultPBKDF2Iterations
		if len(args) > 2 {
			var err error
			if iterations, err = strconv.Atoi(args[2]); err != nil || iterations <= 0 {
				return nil, false
			}
		}

		newHash, size := hashByName(hashName)
		if newHash == nil {
			return nil, false
		}
		return pbkdf2.Key(password, salt, iterations, size, newHash), true

	case "scrypt":
		n, r, p := 32768, 8, 1
		if len(args) == 4 {
			var errN, errR, errP error
			n, errN = strconv.Atoi(args[1])
			r, errR = strconv.Atoi(args[2])
			p, errP = strconv.Atoi(args[3])
			if errN != nil || errR != nil || errP != nil {
				return nil, false
			}
		} else if len(args) != 1 {
			return nil, false
		}

		key, err := scrypt.Key(password, salt, n, r, p, scryptKeyLen)
		if err != nil {
			return nil, false
		}
		return key, true
	}

	return nil, false
}

func hashByName(name string) (func() hash.Hash, int) {
	switch name {
	case "sha1":
		return sha1.New, sha1.Size
	case "sha256":
		return sha256.New, sha256.Size
	case "sha512":
		return sha512.New, sha512.Size
	default:
		return nil, 0
	}
}

func subtleEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
