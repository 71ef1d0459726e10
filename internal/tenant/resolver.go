// Package tenant implements tenant identification, the registry client,
// and the TTL-caching configuration store.
package tenant

import (
	"net"
	"net/http"
	"regexp"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/voterstack/gateway/internal/domain"
)

// slugPattern matches valid tenant slugs in path segments.
var slugPattern = regexp.MustCompile(`^[a-z0-9-]+$`)

// reservedSubdomains never resolve to a tenant.
var reservedSubdomains = map[string]struct{}{
	"www":   {},
	"app":   {},
	"api":   {},
	"admin": {},
}

// tokenClaims is the JWT payload of the session-token strategy.
type tokenClaims struct {
	jwt.RegisteredClaims
	TenantSlug string `json:"tenant_slug"`
}

// Resolver extracts a tenant slug from an inbound request by trying a
// fixed priority chain: subdomain, X-Tenant-ID header, first path
// segment, ?tenant= query parameter, and (when a token secret is
// configured) a tenant_slug claim in a bearer JWT. Resolution is pure
// request parsing; no store or network access occurs here.
type Resolver struct {
	tokenSecret string
}

// NewResolver creates a Resolver. An empty tokenSecret disables the
// session-token strategy; the edge surface runs with the query-parameter
// fallback only.
func NewResolver(tokenSecret string) *Resolver {
	return &Resolver{tokenSecret: tokenSecret}
}

// Resolve returns the identification for the request, or nil when no
// strategy matches. Exactly one strategy wins per request.
func (rs *Resolver) Resolve(r *http.Request) *domain.Identification {
	if slug, ok := slugFromHost(r.Host); ok {
		return &domain.Identification{Method: domain.MethodSubdomain, RawValue: r.Host, Slug: slug}
	}

	if v := strings.TrimSpace(r.Header.Get("X-Tenant-ID")); v != "" {
		if slug := strings.ToLower(v); slugPattern.MatchString(slug) {
			return &domain.Identification{Method: domain.MethodHeader, RawValue: v, Slug: slug}
		}
	}

	if slug, ok := slugFromPath(r.URL.Path); ok {
		return &domain.Identification{Method: domain.MethodPath, RawValue: r.URL.Path, Slug: slug}
	}

	if v := r.URL.Query().Get("tenant"); v != "" && slugPattern.MatchString(v) {
		return &domain.Identification{Method: domain.MethodQuery, RawValue: v, Slug: v}
	}

	if rs.tokenSecret != "" {
		if slug, ok := rs.slugFromToken(r.Header.Get("Authorization")); ok {
			return &domain.Identification{Method: domain.MethodToken, RawValue: "bearer", Slug: slug}
		}
	}

	return nil
}

// slugFromHost applies the subdomain strategy. Hosts need at least three
// labels (two for localhost, a dev convenience) and the first label must
// not be reserved. Malformed or IP-literal hosts never match.
func slugFromHost(host string) (string, bool) {
	host = strings.ToLower(strings.TrimSpace(host))
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	if host == "" || net.ParseIP(host) != nil {
		return "", false
	}

	labels := strings.Split(host, ".")
	minLabels := 3
	if labels[len(labels)-1] == "localhost" {
		minLabels = 2
	}
	if len(labels) < minLabels {
		return "", false
	}

	first := labels[0]
	if first == "" || !slugPattern.MatchString(first) {
		return "", false
	}
	if _, reserved := reservedSubdomains[first]; reserved {
		return "", false
	}
	return first, true
}

// slugFromPath applies the path strategy: the first path segment, when it
// looks like a slug.
func slugFromPath(path string) (string, bool) {
	seg := strings.TrimPrefix(path, "/")
	if i := strings.IndexByte(seg, '/'); i >= 0 {
		seg = seg[:i]
	}
	if seg == "" || !slugPattern.MatchString(seg) {
		return "", false
	}
	return seg, true
}

// slugFromToken parses a bearer JWT and returns its tenant_slug claim.
func (rs *Resolver) slugFromToken(authorization string) (string, bool) {
	raw, ok := strings.CutPrefix(authorization, "Bearer ")
	if !ok || raw == "" {
		return "", false
	}

	claims := &tokenClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(_ *jwt.Token) (any, error) {
		return []byte(rs.tokenSecret), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid {
		return "", false
	}
	if claims.TenantSlug == "" || !slugPattern.MatchString(claims.TenantSlug) {
		return "", false
	}
	return claims.TenantSlug, true
}
