// Package keystore turns a user password into (a) a verifiable login hash
// and (b) a symmetric key protecting the wallet private key. The two
// derivations use independent salts and different KDFs, so a stolen login
// hash reveals nothing about the encryption key.
package keystore

import (
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// argon2id parameters for the login hash. Tuned for an interactive server:
// one pass over 64 MiB keeps login latency low while staying expensive for
// offline guessing.
const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	argonKeyLen  = 32

	passwordSaltLen = 16
)

// HashPassword derives a login verifier from the password with a fresh
// random salt and returns it in a self-describing record:
//
//	argon2id$v=19$m=65536,t=1,p=4$<salt-b64>$<hash-b64>
//
// The record format carries its own parameters so they can be tuned later
// without invalidating existing users.
func HashPassword(password []byte) (string, error) {
	salt, err := randomBytes(passwordSaltLen)
	if err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	hash := argon2.IDKey(password, salt, argonTime, argonMemory, argonThreads, argonKeyLen)

	record := fmt.Sprintf("argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, argonMemory, argonTime, argonThreads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	)
	return record, nil
}

// VerifyPassword re-derives the hash with the stored salt and parameters and
// compares in constant time. A malformed record verifies as false, never as
// an error, so callers report one uniform credential failure.
func VerifyPassword(password []byte, record string) bool {
	parts := strings.Split(record, "$")
	if len(parts) != 5 || parts[0] != "argon2id" {
		return false
	}

	var version int
	if _, err := fmt.Sscanf(parts[1], "v=%d", &version); err != nil || version != argon2.Version {
		return false
	}

	var memory, time uint32
	var threads uint8
	if _, err := fmt.Sscanf(parts[2], "m=%d,t=%d,p=%d", &memory, &time, &threads); err != nil {
		return false
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[3])
	if err != nil {
		return false
	}
	want, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false
	}

	got := argon2.IDKey(password, salt, time, memory, threads, uint32(len(want)))
	defer clear(got)

	return subtle.ConstantTimeCompare(got, want) == 1
}
