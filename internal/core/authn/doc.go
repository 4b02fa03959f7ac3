// Package authn issues and validates bearer session tokens.
//
// Passwords are stored as bcrypt hashes. Sessions are stateless HS256 JWTs
// carrying the user ID in "sub" and an expiry in "exp"; a token is valid
// while the current time is strictly before its expiry and its signature
// verifies under the configured secret. Validation resolves the subject
// through a SubjectResolver so deleted users lose access immediately.
package authn
