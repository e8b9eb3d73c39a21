package main

import (
	"fmt"
	"time"

	"github.com/form3tech-oss/jwt-go"

	"gomokubot/engine"
)

// SeatTokens signs and checks the HS256 tokens that bind a client to one
// seat of one room.
type SeatTokens struct {
	secret []byte
	ttl    time.Duration
}

type SeatClaims struct {
	RoomID    string
	Mark      engine.Mark
	ExpiresAt time.Time
}

func NewSeatTokens(secret string, ttl time.Duration) *SeatTokens {
	return &SeatTokens{secret: []byte(secret), ttl: ttl}
}

func (t *SeatTokens) Issue(roomID string, mark engine.Mark) (string, error) {
	if len(t.secret) == 0 {
		return "", fmt.Errorf("seat token secret is empty")
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  roomID,
		"seat": int(mark),
		"iat":  now.Unix(),
		"exp":  now.Add(t.ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

func (t *SeatTokens) Verify(raw string) (SeatClaims, error) {
	token, err := jwt.Parse(raw, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil {
		return SeatClaims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return SeatClaims{}, ErrInvalidToken
	}
	roomID, _ := claims["sub"].(string)
	seat, _ := claims["seat"].(float64)
	exp, _ := claims["exp"].(float64)
	if roomID == "" {
		return SeatClaims{}, fmt.Errorf("%w: missing room", ErrInvalidToken)
	}
	mark := engine.Mark(int(seat))
	if mark != engine.MarkBot && mark != engine.MarkPlayer {
		return SeatClaims{}, fmt.Errorf("%w: bad seat %v", ErrInvalidToken, claims["seat"])
	}
	return SeatClaims{
		RoomID:    roomID,
		Mark:      mark,
		ExpiresAt: time.Unix(int64(exp), 0),
	}, nil
}
