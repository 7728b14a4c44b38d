package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"support-chat/domain"
)

// ParticipantClaims defines the identity data stored inside the JWT
// issued by the storefront's auth service.
type ParticipantClaims struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
	jwt.RegisteredClaims
}

// Resolver turns bearer credentials into chat participants. The
// signing secret is shared with the external identity service.
type Resolver struct {
	secret []byte
}

func NewResolver(secret []byte) Resolver {
	return Resolver{secret: secret}
}

// GenerateToken creates a signed JWT for a participant. Used by the
// identity collaborator and by tests; the chat core itself only reads
// tokens.
func (r Resolver) GenerateToken(p domain.Participant, duration time.Duration) (string, error) {
	claims := &ParticipantClaims{
		UserID:      p.ID,
		DisplayName: p.DisplayName,
		Role:        string(p.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(duration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "support-chat",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(r.secret)
}

// ResolveParticipant parses and validates a JWT string and maps its
// claims to a Participant. Unknown roles are rejected.
func (r Resolver) ResolveParticipant(tokenString string) (domain.Participant, error) {
	token, err := jwt.ParseWithClaims(tokenString, &ParticipantClaims{}, func(token *jwt.Token) (interface{}, error) {
		return r.secret, nil
	})
	if err != nil {
		return domain.Participant{}, err
	}

	claims, ok := token.Claims.(*ParticipantClaims)
	if !ok || !token.Valid {
		return domain.Participant{}, jwt.ErrSignatureInvalid
	}

	role := domain.Role(claims.Role)
	if role != domain.RoleCustomer && role != domain.RoleAdmin {
		return domain.Participant{}, jwt.ErrTokenInvalidClaims
	}

	return domain.Participant{
		ID:          claims.UserID,
		DisplayName: claims.DisplayName,
		Role:        role,
	}, nil
}
