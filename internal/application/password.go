package application

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/argon2"
)

// MinPasswordLength is the shortest password accepted when provisioning a client.
const MinPasswordLength = 8

// PasswordParams tunes argon2id.
type PasswordParams struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultPasswordParams is used for every provisioned client account.
var DefaultPasswordParams = PasswordParams{
	Memory:      64 * 1024,
	Iterations:  3,
	Parallelism: 2,
	SaltLength:  16,
	KeyLength:   32,
}

// PasswordHasher turns a clear password into a storable hash.
type PasswordHasher func(password string) (string, error)

// Argon2idHasher returns a PasswordHasher bound to params.
func Argon2idHasher(params PasswordParams) PasswordHasher {
	return func(password string) (string, error) {
		return HashPassword(password, params)
	}
}

// HashPassword encodes password as $argon2id$v=19$m=..,t=..,p=..$salt$hash.
func HashPassword(password string, params PasswordParams) (string, error) {
	salt := make([]byte, params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("application: read salt: %w", err)
	}

	key := argon2.IDKey([]byte(password), salt, params.Iterations, params.Memory, params.Parallelism, params.KeyLength)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		params.Memory, params.Iterations, params.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}
