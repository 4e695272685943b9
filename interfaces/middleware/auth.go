package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"

	"socialdesk/domain/dto"
	"socialdesk/domain/model"
	"socialdesk/domain/repository"
	"socialdesk/infrastructure/configuration"
)

// Auth validates the bearer token and stores the authenticated user name
// under "user_id" for downstream handlers.
func Auth(userRepository repository.IUser) gin.HandlerFunc {
	unauthorized := dto.Res{
		ResponseCode:    "401",
		ResponseMessage: "Unauthorized",
	}

	return func(ctx *gin.Context) {
		authorization := ctx.Request.Header.Get("Authorization")
		if authorization == "" {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, unauthorized)
			return
		}
		parts := strings.Split(authorization, "Bearer ")
		if len(parts) != 2 {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, unauthorized)
			return
		}

		claims, token, err := parseClaims(parts[1])
		if err != nil || !token.Valid {
			res := unauthorized
			res.ResponseMessage = describeTokenError(err)
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, res)
			return
		}

		if _, err := userRepository.GetByUserName(ctx.Request.Context(), claims.UserName); err != nil {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, unauthorized)
			return
		}
		ctx.Set("user_id", claims.UserName)
		ctx.Next()
	}
}

func parseClaims(raw string) (model.UserClaims, *jwt.Token, error) {
	var claims model.UserClaims
	token, err := jwt.ParseWithClaims(raw, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(configuration.C.App.SecretKey), nil
	})
	return claims, token, err
}

func describeTokenError(err error) string {
	var ve *jwt.ValidationError
	if errors.As(err, &ve) {
		if ve.Errors&jwt.ValidationErrorMalformed != 0 {
			return "Malformed token"
		}
		if ve.Errors&(jwt.ValidationErrorExpired|jwt.ValidationErrorNotValidYet) != 0 {
			return "Token expired or not yet valid"
		}
	}
	return "Unauthorized"
}
