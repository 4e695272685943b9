package utils

import (
	"time"

	"github.com/golang-jwt/jwt"

	"socialdesk/domain/model"
	"socialdesk/infrastructure/configuration"
)

func GetCurrentTime() time.Time {
	return time.Now().UTC()
}

// GenerateToken issues a signed session JWT for the dashboard user.
func GenerateToken(user model.User) (string, error) {
	now := GetCurrentTime()
	claims := model.UserClaims{
		UserName: user.UserName,
		StandardClaims: jwt.StandardClaims{
			Id:        "1",
			Issuer:    "socialdesk",
			Subject:   user.UserName,
			Audience:  "https://tech.socialdesk.local",
			IssuedAt:  now.Unix(),
			NotBefore: now.Unix(),
			ExpiresAt: now.Add(24 * time.Hour).Unix(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(configuration.C.App.SecretKey))
}
