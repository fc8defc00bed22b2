package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
)

var (
	ErrInvalidToken = errors.New("token is invalid")
	ErrExpiredToken = errors.New("token has expired")
	ErrMissingToken = errors.New("token is missing")
)

type contextKey string

const payloadKey contextKey = "payload"

// Payload holds the claims of a portal issued token.
type Payload struct {
	Subject string `json:"sub,omitempty"`
	Origin  string `json:"origin,omitempty"`
	Expires int64  `json:"exp,omitempty"`

	// Raw is the token as received.
	Raw string `json:"-"`
}

func (payload *Payload) Valid() error {
	if payload.Expires != 0 && time.Now().After(time.Unix(payload.Expires, 0)) {
		return ErrExpiredToken
	}
	return nil
}

// Token verifies HS256 tokens. With an empty secret tokens are accepted
// unverified and only their claims are read.
type Token struct {
	secretKey string
}

func NewToken(secret string) Token {
	return Token{secretKey: secret}
}

func (t *Token) Verifies() bool {
	return t.secretKey != ""
}

// CreateToken signs a token the way the portal issues them.
func (t *Token) CreateToken(subject, origin string, duration time.Duration) (string, error) {
	payload := Payload{Subject: subject, Origin: origin, Expires: time.Now().Add(duration).Unix()}
	jwtToken := jwt.NewWithClaims(jwt.SigningMethodHS256, &payload)
	signedToken, err := jwtToken.SignedString([]byte(t.secretKey))
	if err != nil {
		return "", err
	}
	return signedToken, nil
}

func ExtractToken(r *http.Request) string {
	bearToken := r.Header.Get("Authorization")
	strArr := strings.Split(bearToken, " ")
	if len(strArr) == 2 && strings.EqualFold(strArr[0], "Bearer") {
		return strArr[1]
	}
	return ""
}

func (t *Token) VerifyToken(token string) (*Payload, error) {
	if token == "" {
		return nil, ErrMissingToken
	}
	if !t.Verifies() {
		payload := &Payload{}
		// Opaque tokens are still forwarded.
		if _, _, err := new(jwt.Parser).ParseUnverified(token, payload); err != nil {
			payload = &Payload{}
		}
		payload.Raw = token
		return payload, nil
	}

	keyFunc := func(token *jwt.Token) (interface{}, error) {
		_, ok := token.Method.(*jwt.SigningMethodHMAC)
		if !ok {
			return nil, ErrInvalidToken
		}
		return []byte(t.secretKey), nil
	}

	jwtToken, err := jwt.ParseWithClaims(token, &Payload{}, keyFunc)
	if err != nil {
		verr, ok := err.(*jwt.ValidationError)
		if ok && errors.Is(verr.Inner, ErrExpiredToken) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	payload, ok := jwtToken.Claims.(*Payload)
	if !ok {
		return nil, ErrInvalidToken
	}
	payload.Raw = token
	return payload, nil
}

func (s *Server) authHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload, err := s.Token.VerifyToken(ExtractToken(r))
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized", err.Error())
			return
		}

		ctx := context.WithValue(r.Context(), payloadKey, payload)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func payloadFrom(ctx context.Context) *Payload {
	payload, _ := ctx.Value(payloadKey).(*Payload)
	if payload == nil {
		return &Payload{}
	}
	return payload
}
