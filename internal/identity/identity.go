// Package identity talks to the external identity provider: it verifies
// bearer credentials into a UserContext and reports stored file URLs
// back to the provider. The provider owns user identity; this package
// fails closed on any ambiguity.
package identity

import (
	"context"
	"fmt"
)

// UserContext is the normalized result of a successful verification.
// ID is always non-empty; the remaining fields are optional.
type UserContext struct {
	ID          string
	Workspace   string
	DisplayName string
	Email       string
	Role        string
}

// Verifier resolves a bearer credential to a UserContext.
type Verifier interface {
	Verify(ctx context.Context, credential string) (*UserContext, error)
}

// Notifier reports a stored object reference back to the provider so it
// can persist the URL against the user's record.
type Notifier interface {
	SaveFileURL(ctx context.Context, credential, fileName, fileURL, userID string) error
}

// AuthErrorKind distinguishes verification failure causes.
type AuthErrorKind string

const (
	// KindMissingCredential: no bearer credential was supplied.
	KindMissingCredential AuthErrorKind = "missing_credential"
	// KindTransport: the provider could not be reached.
	KindTransport AuthErrorKind = "transport"
	// KindRejected: the provider answered and declined the credential.
	KindRejected AuthErrorKind = "rejected"
	// KindMalformed: the provider answered 200 but the body did not
	// carry a usable user record.
	KindMalformed AuthErrorKind = "malformed_response"
)

// AuthError is a typed verification failure.
type AuthError struct {
	Kind   AuthErrorKind
	Detail string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("authentication failed (%s): %s: %v", e.Kind, e.Detail, e.Err)
	}
	return fmt.Sprintf("authentication failed (%s): %s", e.Kind, e.Detail)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}
