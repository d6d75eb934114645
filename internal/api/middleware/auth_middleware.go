package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// TestUserHeader は BYPASS_AUTH 有効時にユーザーIDを固定するためのヘッダーです。
const TestUserHeader = "X-Test-User-ID"

var (
	ErrMissingSecret = errors.New("jwt secret is not configured")
	ErrInvalidToken  = errors.New("invalid token")
)

type UserIDKey struct{}

// GetUserIDFromContext retrieves the user ID from the context.
func GetUserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserIDKey{}).(string)
	return userID, ok && userID != ""
}

// WithUserID はユーザーIDを持つコンテキストを返します。
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDKey{}, userID)
}

// writeJSONError writes a JSON error response
func writeJSONError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// ParseUserID は Supabase の HS256 JWT を検証し、'sub' クレームのユーザーIDを返します。
// "Bearer " プレフィックスが付いていても構いません。
func ParseUserID(tokenString, secret string) (string, error) {
	if secret == "" {
		return "", ErrMissingSecret
	}
	tokenString = strings.TrimPrefix(tokenString, "Bearer ")

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		// アルゴリズムがHMACであることを確認
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return "", ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("%w: invalid claims", ErrInvalidToken)
	}
	// SupabaseのJWTはユーザーIDを 'sub' (Subject) クレームに格納します。
	userID, ok := claims["sub"].(string)
	if !ok || userID == "" {
		return "", fmt.Errorf("%w: missing user ID", ErrInvalidToken)
	}
	return userID, nil
}

// NewAuthMiddleware は Authorization ヘッダーの JWT を検証するミドルウェアを返します。
//
// Parameters:
//
//	secret : JWT の署名検証に使う SUPABASE_JWT_SECRET
//	bypass : true なら検証せず、TestUserHeader のIDまたはランダムなIDで通す（テスト用）
func NewAuthMiddleware(secret string, bypass bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if bypass {
				testUserID := r.Header.Get(TestUserHeader)
				if testUserID == "" {
					testUserID = uuid.New().String()
				}
				log.Debug().Str("component", "AuthMiddleware").Str("user", testUserID).Msg("BYPASS_AUTH enabled")
				next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), testUserID)))
				return
			}

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeJSONError(w, http.StatusUnauthorized, "Authorization header is required")
				return
			}
			if !strings.HasPrefix(authHeader, "Bearer ") || len(authHeader) <= len("Bearer ") {
				writeJSONError(w, http.StatusUnauthorized, "Invalid Authorization header format. Must be 'Bearer <token>'")
				return
			}

			userID, err := ParseUserID(authHeader, secret)
			if errors.Is(err, ErrMissingSecret) {
				log.Error().Str("component", "AuthMiddleware").Msg("SUPABASE_JWT_SECRET environment variable is not set")
				writeJSONError(w, http.StatusInternalServerError, "Server configuration error: JWT secret missing")
				return
			}
			if err != nil {
				log.Warn().Str("component", "AuthMiddleware").Err(err).Msg("JWT verification failed")
				writeJSONError(w, http.StatusUnauthorized, "Invalid token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}
