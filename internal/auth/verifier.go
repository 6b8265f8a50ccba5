package auth

import (
	pkgauth "github.com/mbenedict/gatehouse/pkg/auth"
)

// CredentialVerifier checks a username/password pair. The engine does not
// own user accounts; deployments plug in their own verifier.
type CredentialVerifier interface {
	Verify(username, password string) bool
}

// StaticCredentialVerifier verifies against a fixed username -> bcrypt
// hash map, loaded from configuration. It backs the reference login entry
// point.
type StaticCredentialVerifier struct {
	users map[string]string
}

// NewStaticCredentialVerifier creates a verifier over the given user map.
func NewStaticCredentialVerifier(users map[string]string) *StaticCredentialVerifier {
	return &StaticCredentialVerifier{users: users}
}

func (v *StaticCredentialVerifier) Verify(username, password string) bool {
	hash, ok := v.users[username]
	if !ok {
		// Burn a comparison anyway so unknown usernames cost the same as
		// wrong passwords.
		_ = pkgauth.ComparePassword("$2a$14$invalidinvalidinvalidinvalce6yDL9ZDllTW5lW5oxxHoQPw6mO7K", password)
		return false
	}
	return pkgauth.ComparePassword(hash, password) == nil
}
