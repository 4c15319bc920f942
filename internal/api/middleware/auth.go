package middleware

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken indicates the JWT could not be parsed or verified
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenExpired indicates the JWT is past its expiry
	ErrTokenExpired = errors.New("token expired")
)

const (
	// APIKeyHeader carries the deployment-wide API key
	APIKeyHeader = "X-API-Key"
	// AuthorizationHeader carries the per-user bearer token
	AuthorizationHeader = "Authorization"
	bearerPrefix        = "Bearer "

	// APIKeyLength is the key size in bytes; keys render as hex, twice as long
	APIKeyLength = 32
	// DefaultTokenExpiry is how long issued tokens stay valid
	DefaultTokenExpiry = 24 * time.Hour

	apiKeyFilename = "api_key.txt"
)

// APIKeyManager owns the single deployment API key. The key lives in a file
// under the data directory so it survives restarts; rotation rewrites the
// file and takes effect immediately.
type APIKeyManager struct {
	mu      sync.RWMutex
	keyFile string
	key     string
}

// NewAPIKeyManager loads the key from dataDir, generating one on first run
func NewAPIKeyManager(dataDir string) (*APIKeyManager, error) {
	m := &APIKeyManager{keyFile: filepath.Join(dataDir, apiKeyFilename)}

	data, err := os.ReadFile(m.keyFile)
	if err == nil && len(data) > 0 {
		m.key = strings.TrimSpace(string(data))
		return m, nil
	}
	if err := m.rotate(); err != nil {
		return nil, err
	}
	return m, nil
}

// rotate generates a fresh key and persists it. Caller must hold no lock
// when going through ResetKey; NewAPIKeyManager calls it before the manager
// is shared.
func (m *APIKeyManager) rotate() error {
	raw := make([]byte, APIKeyLength)
	if _, err := rand.Read(raw); err != nil {
		return err
	}
	key := hex.EncodeToString(raw)

	if err := os.MkdirAll(filepath.Dir(m.keyFile), 0755); err != nil {
		return err
	}
	if err := os.WriteFile(m.keyFile, []byte(key), 0600); err != nil {
		return err
	}

	m.key = key
	return nil
}

// GetCurrentKey returns the active API key
func (m *APIKeyManager) GetCurrentKey() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.key
}

// ValidateKey compares a presented key against the active one in constant
// time. Empty keys never validate.
func (m *APIKeyManager) ValidateKey(presented string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.key == "" || presented == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(m.key), []byte(presented)) == 1
}

// ResetKey rotates the API key. The previous key stops validating at once.
func (m *APIKeyManager) ResetKey() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.rotate(); err != nil {
		return "", err
	}
	return m.key, nil
}

// JWTClaims are the claims carried by issued tokens
type JWTClaims struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// JWTManager signs and verifies the per-user bearer tokens
type JWTManager struct {
	secret []byte
	expiry time.Duration
}

// NewJWTManager creates a new JWTManager instance
func NewJWTManager(secret string, expiry time.Duration) *JWTManager {
	if expiry == 0 {
		expiry = DefaultTokenExpiry
	}
	return &JWTManager{secret: []byte(secret), expiry: expiry}
}

// GenerateToken issues a signed token for the user. Returns the token and
// its expiry as a unix timestamp.
func (m *JWTManager) GenerateToken(userID uint, username string) (string, int64, error) {
	now := time.Now()
	expiresAt := now.Add(m.expiry)

	claims := &JWTClaims{
		UserID:   userID,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    "hora-mail",
			Subject:   username,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", 0, err
	}
	return signed, expiresAt.Unix(), nil
}

// ValidateToken verifies a token and returns its claims
func (m *JWTManager) ValidateToken(tokenString string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// AuthManager bundles the two authentication layers the API runs behind:
// the deployment API key and the per-user JWT.
type AuthManager struct {
	APIKeyManager *APIKeyManager
	JWTManager    *JWTManager
}

// NewAuthManager creates a new AuthManager instance
func NewAuthManager(dataDir, jwtSecret string, tokenExpiry time.Duration) (*AuthManager, error) {
	apiKeyManager, err := NewAPIKeyManager(dataDir)
	if err != nil {
		return nil, err
	}
	return &AuthManager{
		APIKeyManager: apiKeyManager,
		JWTManager:    NewJWTManager(jwtSecret, tokenExpiry),
	}, nil
}

// abortAuth stops the request with the standard 401 envelope
func abortAuth(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"error": gin.H{
			"code":    "AUTH_FAILED",
			"message": message,
		},
	})
}

// APIKeyMiddleware gates every API route behind the deployment key
func APIKeyMiddleware(apiKeyManager *APIKeyManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(APIKeyHeader)
		if key == "" {
			abortAuth(c, "API key is required")
			return
		}
		if !apiKeyManager.ValidateKey(key) {
			abortAuth(c, "Invalid API key")
			return
		}
		c.Next()
	}
}

// JWTMiddleware gates protected routes behind a bearer token and places the
// authenticated identity into the request context.
func JWTMiddleware(jwtManager *JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader(AuthorizationHeader)
		if header == "" {
			abortAuth(c, "Authorization header is required")
			return
		}
		if !strings.HasPrefix(header, bearerPrefix) {
			abortAuth(c, "Invalid authorization header format")
			return
		}

		claims, err := jwtManager.ValidateToken(strings.TrimPrefix(header, bearerPrefix))
		if err != nil {
			if errors.Is(err, ErrTokenExpired) {
				abortAuth(c, "Token has expired")
			} else {
				abortAuth(c, "Invalid token")
			}
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("username", claims.Username)
		c.Next()
	}
}

// GetUserIDFromContext retrieves the authenticated user id set by JWTMiddleware
func GetUserIDFromContext(c *gin.Context) (uint, bool) {
	v, exists := c.Get("user_id")
	if !exists {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok
}

// GetUsernameFromContext retrieves the authenticated username set by JWTMiddleware
func GetUsernameFromContext(c *gin.Context) (string, bool) {
	v, exists := c.Get("username")
	if !exists {
		return "", false
	}
	name, ok := v.(string)
	return name, ok
}
