package utils

import (
	"errors"
	"time"

	"miam_back_end/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

const TokenTTL = 24 * time.Hour

func GenerateJWT(user models.User, secret string) (string, error) {
	if secret == "" {
		return "", errors.New("JWT_SECRET manquant")
	}

	claims := jwt.MapClaims{
		"user_id": user.ID,
		"email":   user.Email,
		"role":    string(user.Role),
		"exp":     time.Now().Add(TokenTTL).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}
