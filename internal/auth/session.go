// internal/auth/session.go
package auth

import (
	"crypto/ed25519"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// privateKey and publicKey sign and verify session tokens.
var (
	privateKey ed25519.PrivateKey
	publicKey  ed25519.PublicKey

	// tokenExpireSec is how many seconds until JWT expiration (0 => never).
	tokenExpireSec int
)

// parseTokenExpireTime reads the TOKEN_EXPIRE_TIME env var, accepting a Go
// duration string or "never".
func parseTokenExpireTime() {
	duration := os.Getenv("TOKEN_EXPIRE_TIME")
	if duration == "never" || duration == "0" || duration == "" {
		tokenExpireSec = 0
		return
	}
	d, err := time.ParseDuration(duration)
	if err != nil {
		fmt.Printf("failed to parse token expire time: %v\n", err)
		os.Exit(1)
	}
	tokenExpireSec = int(d.Seconds())
}

// Init generates a fresh ed25519 key pair at runtime and sets the token
// expiration. Tokens do not survive a restart; games do not either.
func Init() {
	var err error
	publicKey, privateKey, err = ed25519.GenerateKey(nil)
	if err != nil {
		fmt.Printf("failed to generate ed25519 key pair: %v\n", err)
		os.Exit(1)
	}
	parseTokenExpireTime()
}

// InitFromPath reads ed25519 private/public keys from file and sets the token expiration.
func InitFromPath(privatePath, publicPath string) error {
	privateKeyData, err := os.ReadFile(privatePath)
	if err != nil {
		return fmt.Errorf("failed to read private key file: %w", err)
	}
	publicKeyData, err := os.ReadFile(publicPath)
	if err != nil {
		return fmt.Errorf("failed to read public key file: %w", err)
	}

	privateKey = ed25519.PrivateKey(privateKeyData)
	publicKey = ed25519.PublicKey(publicKeyData)
	parseTokenExpireTime()
	return nil
}

// CreateJWT creates a signed session token with "sub" = userID.
func CreateJWT(userID string) (string, error) {
	claims := jwt.MapClaims{
		"sub": userID,
	}
	if tokenExpireSec > 0 {
		claims["exp"] = time.Now().Add(time.Duration(tokenExpireSec) * time.Second).Unix()
	}
	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	return token.SignedString(privateKey)
}

// CreateGameJWT creates a signed token scoped to one game: "sub" = userID,
// "game" = gameID. Handed out on game creation so the websocket upgrade can
// verify both identity and membership in one step.
func CreateGameJWT(userID, gameID string) (string, error) {
	claims := jwt.MapClaims{
		"sub":  userID,
		"game": gameID,
	}
	if tokenExpireSec > 0 {
		claims["exp"] = time.Now().Add(time.Duration(tokenExpireSec) * time.Second).Unix()
	}
	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	return token.SignedString(privateKey)
}

// AuthenticateJWT verifies a JWT string, returning the "sub" claim if valid.
func AuthenticateJWT(tokenString string) (string, error) {
	claims, err := parse(tokenString)
	if err != nil {
		return "", err
	}
	userID, ok := claims["sub"].(string)
	if !ok {
		return "", fmt.Errorf("missing sub in jwt")
	}
	return userID, nil
}

// AuthenticateGameJWT verifies a game-scoped token, returning the user and
// game IDs. A plain session token yields an empty game ID.
func AuthenticateGameJWT(tokenString string) (userID, gameID string, err error) {
	claims, err := parse(tokenString)
	if err != nil {
		return "", "", err
	}
	userID, ok := claims["sub"].(string)
	if !ok {
		return "", "", fmt.Errorf("missing sub in jwt")
	}
	gameID, _ = claims["game"].(string)
	return userID, gameID, nil
}

func parse(tokenString string) (jwt.MapClaims, error) {
	t, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return publicKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("jwt parse error: %w", err)
	}
	if !t.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	claims, ok := t.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid jwt claims")
	}
	return claims, nil
}
