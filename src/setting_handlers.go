package main

import (
	"net/http"

	"vitacal/src/db"
	"vitacal/src/models"
	"vitacal/src/types"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// settingHandlers manages runtime policy values (refund retention rate
// and similar knobs read by the engine with compiled-in fallbacks).
func settingHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		POST("/settings", func(ctx *gin.Context) {
			var body types.CreateSettingRequestBody
			err := ctx.ShouldBindJSON(&body)
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			conn := db.GetDb()
			err = conn.Transaction(func(tx *gorm.DB) error {
				setting := models.Setting{
					SettingKey:   body.Key,
					SettingValue: types.JSONBAny{Inner: body.Value},
					Group:        body.Group,
				}
				err := tx.
					Clauses(clause.OnConflict{
						Columns:   []clause.Column{{Name: "setting_key"}, {Name: "group"}},
						DoUpdates: clause.AssignmentColumns([]string{"setting_value"}),
					}).
					Create(&setting).
					Error
				if err != nil {
					return err
				}
				return nil
			})
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			ctx.Status(http.StatusOK)
		}).
		GET("/settings", func(ctx *gin.Context) {
			var settings []models.Setting
			conn := db.GetDb()
			err := conn.Find(&settings).Error
			if err != nil {
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": settings})
		})
	return g
}
