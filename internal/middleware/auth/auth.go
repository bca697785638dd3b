// Package auth authenticates chat clients with bearer tokens.
//
// A token is bound either to one chat user, in which case the client may only
// act as that user, or to the wildcard "*", which marks a trusted bridge (for
// example a messenger gateway) that relays messages for many users.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"

	"hesab/internal/log"
)

// Wildcard binds a token to every user.
const Wildcard = "*"

// QueryParam carries the token for browser websocket clients, which cannot
// set request headers.
const QueryParam = "access_token"

// minTokenLen rejects guessable secrets at configuration time.
const minTokenLen = 16

var (
	ErrMalformedToken = errors.New("malformed token entry")
	ErrForbiddenUser  = errors.New("token is not valid for this user")
	ErrNoUser         = errors.New("missing user")
)

type contextKey struct{}

// Principal is the authenticated caller.
type Principal struct {
	// User is the only user the caller may act as. Empty for a bridge.
	User string
}

// Bridge reports whether the caller may act for any user.
func (p Principal) Bridge() bool { return p.User == "" }

// Resolve returns the user a request for requested is executed as.
func (p Principal) Resolve(requested string) (string, error) {
	requested = strings.TrimSpace(requested)
	switch {
	case p.Bridge() && requested == "":
		return "", ErrNoUser
	case p.Bridge():
		return requested, nil
	case requested != "" && requested != p.User:
		return "", ErrForbiddenUser
	}
	return p.User, nil
}

// ParseTokens reads "secret=user" entries. A user of "*" marks a bridge.
func ParseTokens(entries []string) (map[string]string, error) {
	tokens := make(map[string]string, len(entries))
	for _, e := range entries {
		secret, user, ok := strings.Cut(e, "=")
		secret, user = strings.TrimSpace(secret), strings.TrimSpace(user)
		if !ok || secret == "" || user == "" {
			return nil, fmt.Errorf("%w: expected secret=user", ErrMalformedToken)
		}
		if len(secret) < minTokenLen {
			return nil, fmt.Errorf("%w: secret for %q shorter than %d characters", ErrMalformedToken, user, minTokenLen)
		}
		if _, dup := tokens[secret]; dup {
			return nil, fmt.Errorf("%w: duplicate secret for %q", ErrMalformedToken, user)
		}
		tokens[secret] = user
	}
	return tokens, nil
}

type credential struct {
	secret    []byte
	principal Principal
}

// Metrics counts authentication outcomes.
type Metrics struct {
	Accepted int64
	Rejected int64
}

// Authenticator checks bearer tokens. With no tokens every request is rejected.
type Authenticator struct {
	credentials []credential
	accepted    int64
	rejected    int64
}

// New builds an Authenticator from secret to user bindings.
func New(tokens map[string]string) *Authenticator {
	a := &Authenticator{credentials: make([]credential, 0, len(tokens))}
	for secret, user := range tokens {
		p := Principal{User: user}
		if user == Wildcard {
			p.User = ""
		}
		a.credentials = append(a.credentials, credential{secret: []byte(secret), principal: p})
	}
	return a
}

// Authenticate finds the principal for the request's token.
func (a *Authenticator) Authenticate(r *http.Request) (Principal, bool) {
	token := bearerToken(r)
	if token == "" {
		return Principal{}, false
	}
	var (
		found Principal
		ok    bool
	)
	// Compare against every credential so timing does not reveal a match position.
	for _, c := range a.credentials {
		if subtle.ConstantTimeCompare(c.secret, []byte(token)) == 1 {
			found, ok = c.principal, true
		}
	}
	return found, ok
}

// Middleware rejects unauthenticated requests with 401 and stores the
// principal in the request context.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := a.Authenticate(r)
		if !ok {
			atomic.AddInt64(&a.rejected, 1)
			log.FromContext(r.Context()).WarnContext(r.Context(), "Unauthenticated request rejected",
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path)
			w.Header().Set("WWW-Authenticate", `Bearer realm="hesab"`)
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		atomic.AddInt64(&a.accepted, 1)
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
	})
}

// GetMetrics returns the authentication counters.
func (a *Authenticator) GetMetrics() Metrics {
	return Metrics{
		Accepted: atomic.LoadInt64(&a.accepted),
		Rejected: atomic.LoadInt64(&a.rejected),
	}
}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, contextKey{}, p)
}

// FromContext returns the principal stored by Middleware.
func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(contextKey{}).(Principal)
	return p, ok
}

func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return r.URL.Query().Get(QueryParam)
}
