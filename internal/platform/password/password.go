// Package password wraps Argon2id hashing with self-describing encoded hashes.
//
// Hashes use the PHC string format
// ($argon2id$v=19$m=...,t=...,p=...$salt$digest) so verification reads the
// parameters and salt back out of the stored value.
package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	memory      = 64 * 1024
	iterations  = 3
	parallelism = 2
	saltLength  = 16
	keyLength   = 32
)

// ErrMalformedHash indicates the stored hash could not be parsed.
var ErrMalformedHash = errors.New("password: malformed hash")

// Hash derives an Argon2id hash from the plaintext with a fresh random salt.
func Hash(plaintext string) (string, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("password: generate salt: %w", err)
	}

	key := argon2.IDKey([]byte(plaintext), salt, iterations, memory, parallelism, keyLength)

	encoded := fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		memory, iterations, parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	)
	return encoded, nil
}

// Verify reports whether plaintext matches the encoded hash. The comparison
// is constant time over the derived keys.
func Verify(plaintext, encoded string) (bool, error) {
	p, salt, key, err := decode(encoded)
	if err != nil {
		return false, err
	}
	derived := argon2.IDKey([]byte(plaintext), salt, p.iterations, p.memory, p.parallelism, uint32(len(key)))
	return subtle.ConstantTimeCompare(derived, key) == 1, nil
}

type params struct {
	memory      uint32
	iterations  uint32
	parallelism uint8
}

func decode(encoded string) (params, []byte, []byte, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return params{}, nil, nil, ErrMalformedHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return params{}, nil, nil, ErrMalformedHash
	}
	if version != argon2.Version {
		return params{}, nil, nil, fmt.Errorf("password: unsupported argon2 version %d", version)
	}

	var p params
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.memory, &p.iterations, &p.parallelism); err != nil {
		return params{}, nil, nil, ErrMalformedHash
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return params{}, nil, nil, ErrMalformedHash
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return params{}, nil, nil, ErrMalformedHash
	}
	return p, salt, key, nil
}

// dummyHash is a fixed hash of an unguessable value. Verifying against it
// keeps the work factor of a failed lookup in line with a real verification.
var dummyHash = func() string {
	h, err := Hash("aegis-dummy-credential")
	if err != nil {
		panic(err)
	}
	return h
}()

// VerifyDummy burns a verification-shaped amount of work. Used when the
// username lookup misses so that missing-user and wrong-password failures
// take comparable time.
func VerifyDummy(plaintext string) {
	_, _ = Verify(plaintext, dummyHash)
}
