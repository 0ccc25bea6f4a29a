package jwt

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"spinwheel/internal/ledger"
)

const DefaultExpiration = 24 * 7 * time.Hour

type JWTClaim struct {
	UserId    string `json:"user_id"`
	FirstName string `json:"first_name"`
	Username  string `json:"username"`
	jwt.RegisteredClaims
}

// Issuer signs and checks HS256 session tokens.
type Issuer struct {
	secret     []byte
	expiration time.Duration
}

func NewIssuer(secret string, expiration time.Duration) (*Issuer, error) {
	if secret == "" {
		return nil, errors.New("JWT_SECRET is not set")
	}
	if expiration <= 0 {
		expiration = DefaultExpiration
	}
	return &Issuer{secret: []byte(secret), expiration: expiration}, nil
}

func (i *Issuer) GenerateJWT(user *ledger.User) (token string, claims *JWTClaim, err error) {
	now := time.Now()
	claims = &JWTClaim{
		UserId:    user.Id,
		FirstName: user.FirstName,
		Username:  user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.Id,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.expiration)),
		},
	}
	resToken := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := resToken.SignedString(i.secret)
	if err != nil {
		return "", nil, err
	}
	return signedToken, claims, nil
}

func (i *Issuer) ValidateToken(signedToken string) (*JWTClaim, error) {
	signedToken = strings.TrimSpace(strings.TrimPrefix(signedToken, "Bearer "))
	token, err := jwt.ParseWithClaims(signedToken, &JWTClaim{}, func(t *jwt.Token) (interface{}, error) {
		return i.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*JWTClaim)
	if !ok {
		return nil, errors.New("error parsing claims")
	}
	if claims.UserId == "" || claims.ID == "" {
		return nil, errors.New("malformed data")
	}
	return claims, nil
}
