package middleware

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	apperrors "lakesync.dev/lakesync/internal/pkg/errors"
)

// ErrJWTSigningKeyMissing is returned when no key is configured to verify a token.
var ErrJWTSigningKeyMissing = errors.New("jwt signing key is not configured")

// JWTClaims are the claims carried by trigger tokens.
type JWTClaims struct {
	jwt.RegisteredClaims
}

// JWTConfig holds HS256 signing and verification keys.
type JWTConfig struct {
	SigningKey []byte
	// VerificationKeys are accepted in addition to SigningKey (key rotation).
	VerificationKeys [][]byte
	Issuer           string
	ExpiresIn        time.Duration
}

// NewJWTConfig builds a config from raw keys. The first non-empty key signs;
// all of them verify.
func NewJWTConfig(keys []string, issuer string) JWTConfig {
	cfg := JWTConfig{Issuer: issuer}
	for _, key := range keys {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		if cfg.SigningKey == nil {
			cfg.SigningKey = []byte(key)
			continue
		}
		cfg.VerificationKeys = append(cfg.VerificationKeys, []byte(key))
	}
	return cfg
}

// Enabled reports whether any key is configured.
func (cfg JWTConfig) Enabled() bool {
	return len(cfg.SigningKey) > 0 || len(cfg.VerificationKeys) > 0
}

// GenerateToken creates a signed trigger token for subject.
func GenerateToken(cfg JWTConfig, subject string) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(cfg.ExpiresIn)

	claims := JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    cfg.Issuer,
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(cfg.SigningKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return tokenString, expiresAt, nil
}

// ValidateToken parses tokenString and verifies signature, issuer and expiry.
func (cfg JWTConfig) ValidateToken(tokenString string) (*JWTClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}

	keys := cfg.keys()
	if len(keys) == 0 {
		_, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(*jwt.Token) (interface{}, error) {
			return nil, ErrJWTSigningKeyMissing
		}, opts...)
		return nil, err
	}

	var lastErr error
	for _, key := range keys {
		key := key
		token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(*jwt.Token) (interface{}, error) {
			return key, nil
		}, opts...)
		if err == nil {
			claims, ok := token.Claims.(*JWTClaims)
			if !ok || !token.Valid {
				return nil, jwt.ErrTokenInvalidClaims
			}
			return claims, nil
		}
		lastErr = err
		// Only a signature mismatch is worth retrying with the next key.
		if !errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			break
		}
	}
	return nil, lastErr
}

func (cfg JWTConfig) keys() [][]byte {
	var keys [][]byte
	if len(cfg.SigningKey) > 0 {
		keys = append(keys, cfg.SigningKey)
	}
	return append(keys, cfg.VerificationKeys...)
}

// JWTAuth validates Bearer tokens on the routes it guards. With no keys
// configured it lets every request through.
func JWTAuth(cfg JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !cfg.Enabled() {
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthorized(c, apperrors.CodeUnauthorized, "missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			abortUnauthorized(c, apperrors.CodeUnauthorized, "invalid authorization header format")
			return
		}

		claims, err := cfg.ValidateToken(strings.TrimSpace(parts[1]))
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				abortUnauthorized(c, apperrors.CodeTokenExpired, "token expired")
				return
			}
			abortUnauthorized(c, apperrors.CodeUnauthorized, "invalid token")
			return
		}

		c.Set(string(ctxKeySubject), claims.Subject)
		c.Request = c.Request.WithContext(SetSubject(c.Request.Context(), claims.Subject))
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, code, msg string) {
	appErr := apperrors.Unauthorized(code, msg)
	c.AbortWithStatusJSON(appErr.HTTPStatus, gin.H{
		"code":    appErr.Code,
		"message": appErr.Message,
	})
}
