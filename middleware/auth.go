package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"organic-grocery/models"
	"organic-grocery/utils"
)

// Key type for context
type contextKey string

const userContextKey = contextKey("user")

// UserFromContext returns the authenticated user attached to the request,
// if any.
func UserFromContext(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(userContextKey).(*models.User)
	return user, ok
}

// AuthMiddleware resolves bearer tokens into user records.
type AuthMiddleware struct {
	Users     *mongo.Collection
	JWTSecret []byte
}

// NewAuthMiddleware creates the auth middleware over the users collection.
func NewAuthMiddleware(client *mongo.Client, dbName string, jwtSecret []byte) *AuthMiddleware {
	return &AuthMiddleware{
		Users:     client.Database(dbName).Collection("users"),
		JWTSecret: jwtSecret,
	}
}

// Authenticate verifies the bearer token, loads the user and attaches it to
// the request context. Missing or invalid tokens fail with 401, as does a
// deactivated account.
func (am *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, errMsg := am.resolveUser(r)
		if user == nil {
			utils.RespondError(w, http.StatusUnauthorized, errMsg)
			return
		}
		ctx := context.WithValue(r.Context(), userContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin must run after Authenticate; non-admin users get 403.
func (am *AuthMiddleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFromContext(r.Context())
		if !ok || !user.IsAdmin() {
			utils.RespondError(w, http.StatusForbidden, "Admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// OptionalAuthenticate attaches the user when a valid token is present but
// never rejects the request.
func (am *AuthMiddleware) OptionalAuthenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if user, _ := am.resolveUser(r); user != nil {
			r = r.WithContext(context.WithValue(r.Context(), userContextKey, user))
		}
		next.ServeHTTP(w, r)
	})
}

// resolveUser extracts and verifies the bearer token and loads the user.
// Returns a nil user plus a client-safe message on failure.
func (am *AuthMiddleware) resolveUser(r *http.Request) (*models.User, string) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return nil, "Access token is required"
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return nil, "Invalid Authorization header format"
	}

	claims, err := utils.ParseJWT(am.JWTSecret, parts[1])
	if err != nil {
		return nil, "Invalid or expired token"
	}

	userID, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return nil, "Invalid token"
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	var user models.User
	if err := am.Users.FindOne(ctx, bson.M{"_id": userID}).Decode(&user); err != nil {
		return nil, "Token is invalid - user not found"
	}
	if !user.IsActive {
		return nil, "Account is deactivated"
	}
	return &user, ""
}
