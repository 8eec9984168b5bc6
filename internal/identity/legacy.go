package identity

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// clockSkewAllowance tolerates small clock drift between token issuers
// and the gateway.
const clockSkewAllowance = 5 * time.Minute

// LegacyVerifier implements the deprecated shared-secret token scheme
// "realm|userID|unixSeconds". It predates delegated verification and is
// kept only behind AUTH_MODE=legacy for callers that still mint these
// tokens.
type LegacyVerifier struct {
	realm  string
	maxAge time.Duration
	now    func() time.Time
}

func NewLegacyVerifier(realm string, maxAge time.Duration) *LegacyVerifier {
	return &LegacyVerifier{realm: realm, maxAge: maxAge, now: time.Now}
}

func (v *LegacyVerifier) Verify(_ context.Context, credential string) (*UserContext, error) {
	if strings.TrimSpace(credential) == "" {
		return nil, &AuthError{Kind: KindMissingCredential, Detail: "no bearer credential supplied"}
	}

	token := strings.TrimPrefix(strings.TrimSpace(credential), bearerPrefix)
	parts := strings.Split(token, "|")
	if len(parts) != 3 {
		return nil, &AuthError{Kind: KindMalformed, Detail: "legacy token must have three pipe-separated segments"}
	}
	realm, userID, rawTS := parts[0], parts[1], parts[2]

	if realm != v.realm {
		return nil, &AuthError{Kind: KindRejected, Detail: "legacy token realm mismatch"}
	}
	if userID == "" {
		return nil, &AuthError{Kind: KindMalformed, Detail: "legacy token carries no user id"}
	}
	ts, err := strconv.ParseInt(rawTS, 10, 64)
	if err != nil {
		return nil, &AuthError{Kind: KindMalformed, Detail: "legacy token timestamp is not a unix time", Err: err}
	}

	issued := time.Unix(ts, 0)
	now := v.now()
	if issued.After(now.Add(clockSkewAllowance)) {
		return nil, &AuthError{Kind: KindRejected, Detail: "legacy token issued in the future"}
	}
	if v.maxAge > 0 && now.Sub(issued) > v.maxAge {
		return nil, &AuthError{
			Kind:   KindRejected,
			Detail: fmt.Sprintf("legacy token older than %s", v.maxAge),
		}
	}

	return &UserContext{ID: userID}, nil
}
