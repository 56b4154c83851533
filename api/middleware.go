package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shaj13/go-guardian/auth"
	"github.com/shaj13/go-guardian/auth/strategies/basic"
	"github.com/shaj13/go-guardian/auth/strategies/bearer"
	"github.com/shaj13/go-guardian/store"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/openward/ward-feedback-api/audit"
	"github.com/openward/ward-feedback-api/databases"
	"github.com/openward/ward-feedback-api/models"
)

// MiddlewareDB is a struct that holds the database
type MiddlewareDB struct {
	DB databases.UserDatabase
}

var authenticator auth.Authenticator
var cache store.Cache

// Middleware authenticates the request, resolves the acting principal and
// threads it, along with request metadata for the audit trail, into the
// request context.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		user, err := authenticator.Authenticate(r)
		if err != nil {
			zap.S().Errorw("unauthorized",
				"url", r.URL)
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error": "unauthorized"}`))
			return
		}

		principal, err := principalFromInfo(user)
		if err != nil {
			zap.S().Errorw("authenticated user has no usable principal",
				"user", user.UserName(), "error", err)
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error": "unauthorized"}`))
			return
		}
		zap.S().Debugf("User %s Authenticated\n", user.UserName())

		ctx := WithPrincipal(r.Context(), principal)
		ctx = audit.WithRequestMeta(ctx, audit.RequestMeta{
			IPAddress: clientIP(r),
			UserAgent: r.UserAgent(),
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// SetupGoGuardian sets up the go-guardian middleware. Bearer tokens are
// issued by the external account service; this API only verifies them.
func (m MiddlewareDB) SetupGoGuardian() {
	authenticator = auth.New()
	cache = store.NewFIFO(context.Background(), 10*time.Minute)
	basicStrategy := basic.New(m.ValidateUser, cache)
	tokenStrategy := bearer.New(verifyToken, cache)

	authenticator.EnableStrategy(basic.StrategyKey, basicStrategy)
	authenticator.EnableStrategy(bearer.CachedStrategyKey, tokenStrategy)
}

// ValidateUser checks basic credentials against the users collection.
func (m MiddlewareDB) ValidateUser(ctx context.Context, r *http.Request, username, password string) (auth.Info, error) {
	dbResp, err := m.DB.Find(context.Background(), bson.M{"user.username": username})
	if err != nil {
		return nil, fmt.Errorf("failed to get user by username")
	}
	if len(dbResp) == 0 {
		return nil, fmt.Errorf("no matching username found")
	}

	user := dbResp[0]
	err = bcrypt.CompareHashAndPassword([]byte(user.Details.Password), []byte(password))
	if err != nil {
		return nil, fmt.Errorf("failed to compare password")
	}

	return auth.NewDefaultUser(user.Details.Username, user.ID.Hex(), nil, map[string][]string{
		"role":    {user.Details.Role},
		"scopeId": {user.Details.ScopeID},
	}), nil
}

// verifyToken parses and validates a signed bearer token.
func verifyToken(ctx context.Context, r *http.Request, tokenString string) (auth.Info, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		return []byte(os.Getenv("JWT_SECRET")), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return nil, fmt.Errorf("failed to parse token, %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("unexpected token claims")
	}

	sub, _ := claims["sub"].(string)
	username, _ := claims["username"].(string)
	role, _ := claims["role"].(string)
	scopeID, _ := claims["scopeId"].(string)

	return auth.NewDefaultUser(username, sub, nil, map[string][]string{
		"role":    {role},
		"scopeId": {scopeID},
	}), nil
}

// principalFromInfo rebuilds the domain principal from an auth.Info.
func principalFromInfo(info auth.Info) (models.Principal, error) {
	ext := info.Extensions()
	role, err := models.ParseRole(firstValue(ext["role"]))
	if err != nil {
		return models.Principal{}, err
	}
	return models.Principal{
		UserID:   info.ID(),
		Username: info.UserName(),
		Role:     role,
		ScopeID:  firstValue(ext["scopeId"]),
	}, nil
}

func firstValue(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

// clientIP strips the port from the remote address.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
