// Package access enforces the layered check gating every resource
// operation: bearer token, then role, then bucket ownership.
package access

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/abduss/mediavault/internal/apperr"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Roles understood by the gate.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// Claims is the validated identity extracted from an access token.
type Claims struct {
	UserID string
	Role   string
}

// IsAdmin reports whether the caller holds the admin role.
func (c Claims) IsAdmin() bool { return c.Role == RoleAdmin }

// Constraint narrows Authorize beyond token validity. Zero values impose
// no constraint. Admin callers bypass all constraints.
type Constraint struct {
	ExpectedUserID string
	ExpectedRole   string
}

type grantChecker interface {
	HasGrant(ctx context.Context, userID uuid.UUID, bucketName string) (bool, error)
}

// Gate validates bearer tokens and bucket entitlements.
type Gate struct {
	secret  []byte
	parser  *jwt.Parser
	grants  grantChecker
	nowFunc func() time.Time
}

// NewGate constructs a Gate verifying HS256 tokens signed with secret.
func NewGate(secret string, grants grantChecker) *Gate {
	return &Gate{
		secret:  []byte(secret),
		parser:  jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name})),
		grants:  grants,
		nowFunc: time.Now,
	}
}

// Authorize validates the raw Authorization header value and enforces the
// constraint. Admins short-circuit past role and user checks.
func (g *Gate) Authorize(header string, constraint Constraint) (Claims, error) {
	token := extractBearerToken(header)
	if token == "" {
		return Claims{}, apperr.New(apperr.KindUnauthorized, "missing or malformed authorization header")
	}

	claims, err := g.verify(token)
	if err != nil {
		return Claims{}, err
	}

	if claims.IsAdmin() {
		return claims, nil
	}

	if constraint.ExpectedRole != "" && claims.Role != constraint.ExpectedRole {
		return Claims{}, apperr.New(apperr.KindForbidden, "insufficient role").
			With("role", claims.Role)
	}
	if constraint.ExpectedUserID != "" && claims.UserID != constraint.ExpectedUserID {
		return Claims{}, apperr.New(apperr.KindForbidden, "caller does not match expected user")
	}

	return claims, nil
}

// RequireBucketAccess verifies the caller may touch the bucket. Admins pass
// unconditionally; everyone else needs a recorded grant.
func (g *Gate) RequireBucketAccess(ctx context.Context, caller Claims, bucketName string) error {
	if caller.IsAdmin() {
		return nil
	}

	userID, err := uuid.Parse(caller.UserID)
	if err != nil {
		return apperr.New(apperr.KindUnauthorized, "invalid subject identifier")
	}

	granted, err := g.grants.HasGrant(ctx, userID, bucketName)
	if err != nil {
		return err
	}
	if !granted {
		return apperr.New(apperr.KindForbidden, "bucket not granted to caller").
			With("bucket", bucketName)
	}
	return nil
}

func (g *Gate) verify(tokenString string) (Claims, error) {
	parsed, err := g.parser.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return g.secret, nil
	})
	if err != nil || !parsed.Valid {
		return Claims{}, apperr.New(apperr.KindUnauthorized, "invalid or expired token")
	}

	mapClaims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, apperr.New(apperr.KindUnauthorized, "invalid token claims")
	}

	sub, ok := mapClaims["sub"].(string)
	if !ok || sub == "" {
		return Claims{}, apperr.New(apperr.KindUnauthorized, "token missing subject")
	}

	role, _ := mapClaims["role"].(string)
	if role == "" {
		role = RoleUser
	}

	expFloat, ok := mapClaims["exp"].(float64)
	if !ok {
		return Claims{}, apperr.New(apperr.KindUnauthorized, "token missing expiry")
	}
	if time.Unix(int64(expFloat), 0).Before(g.nowFunc()) {
		return Claims{}, apperr.New(apperr.KindUnauthorized, "token expired")
	}

	return Claims{UserID: sub, Role: role}, nil
}

func extractBearerToken(header string) string {
	if !strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}
