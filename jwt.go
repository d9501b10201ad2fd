package confluxfs

import (
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
)

// claims of the session token issued by the auth endpoints. The token
// is verified server-side; the client only reads claims for session
// identity and expiry display.
type SessionJwt struct {
	Username  string
	ExpiresAt time.Time
}

func ParseSessionJwtUnverified(byJwt string) (*SessionJwt, error) {
	parser := gojwt.NewParser()
	token, _, err := parser.ParseUnverified(byJwt, gojwt.MapClaims{})
	if err != nil {
		return nil, err
	}

	claims := token.Claims.(gojwt.MapClaims)

	sessionJwt := &SessionJwt{}

	if username, ok := claims["sub"].(string); ok {
		sessionJwt.Username = username
	}
	if exp, ok := claims["exp"].(float64); ok {
		sessionJwt.ExpiresAt = time.Unix(int64(exp), 0)
	}

	return sessionJwt, nil
}
