package main

import (
	"net/http"

	"vitacal/src/db"
	"vitacal/src/middlewares"
	"vitacal/src/models"
	"vitacal/src/types"

	"github.com/gin-gonic/gin"
)

// deviceTokenRoutes registers the expert's push token for booking
// notifications. Guarded by the identity provider's ID token rather than
// the session JWT because the mobile app registers the token right after
// sign-in, before a session exists.
func deviceTokenRoutes(g *gin.Engine) *gin.RouterGroup {
	apiv1 := apiv1Group(g)
	apiv1.Use(middlewares.VerifyIdToken)
	apiv1.POST("/device-token", func(ctx *gin.Context) {
		var body types.RegisterDeviceTokenRequestBody
		if err := ctx.ShouldBindJSON(&body); err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		uid := ctx.GetString("uid")
		conn := db.GetDb()
		result := conn.
			Model(&models.Expert{}).
			Where(&models.Expert{UID: uid}).
			Update("fcm_token", body.Token)
		if result.Error != nil {
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": result.Error.Error()})
			return
		}
		if result.RowsAffected == 0 {
			ctx.Status(http.StatusNotFound)
			return
		}
		ctx.Status(http.StatusOK)
	})
	return apiv1
}
