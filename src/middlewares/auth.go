package middlewares

import (
	"log"
	"os"
	"strings"

	"vitacal/src/db"
	"vitacal/src/models"
	"vitacal/src/types"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
)

var jwtKey = []byte(os.Getenv("JWT_SECRET"))

// AuthMiddleware resolves the bearer token to an Expert row. Identity
// itself is issued by the external provider; this only maps the subject
// claim onto our record.
func AuthMiddleware(ctx *gin.Context) {
	bearerToken := ctx.Request.Header.Get("Authorization")
	if !strings.HasPrefix(bearerToken, "Bearer") {
		ctx.AbortWithStatus(401)
		return
	}
	reqToken := strings.Split(bearerToken, " ")[1]
	if reqToken == "" {
		ctx.AbortWithStatus(401)
		return
	}
	claims := &types.Claims{}
	tkn, err := jwt.ParseWithClaims(reqToken, claims, func(t *jwt.Token) (any, error) {
		return jwtKey, nil
	})
	if err != nil {
		log.Printf("token error: %s\n", err.Error())
		if err == jwt.ErrSignatureInvalid || err == jwt.ErrTokenMalformed {
			ctx.AbortWithStatus(401)
			return
		}
		ctx.AbortWithError(401, err)
		return
	}
	if !tkn.Valid {
		ctx.AbortWithStatus(401)
		return
	}

	conn := db.GetDb()
	var expert models.Expert
	conn.Model(&models.Expert{}).Where(&models.Expert{UID: claims.Subject}).Find(&expert)
	if expert.ID < 1 {
		ctx.AbortWithStatus(401)
		return
	}
	ctx.Set("email", expert.Email)
	ctx.Set("id", expert.ID)
	ctx.Set("uid", expert.UID)
}
