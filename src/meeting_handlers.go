package main

import (
	"errors"
	"log"
	"net/http"
	"time"

	"vitacal/src/db"
	"vitacal/src/models"
	"vitacal/src/types"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func meetingHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		GET("/meetings", func(ctx *gin.Context) {
			expertId := ctx.GetUint("id")
			var meetings []models.Meeting
			conn := db.GetDb()
			err := conn.
				Where(&models.Meeting{ExpertID: expertId}).
				Preload("Event").
				Order("start_at asc").
				Find(&meetings).
				Error
			if err != nil {
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": meetings})
		}).
		GET("/meetings/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			expertId := ctx.GetUint("id")
			var meeting models.Meeting
			conn := db.GetDb()
			err := conn.
				Where(&models.Meeting{ID: params.ID, ExpertID: expertId}).
				Preload("Event").
				First(&meeting).
				Error
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					ctx.Status(http.StatusNotFound)
					return
				}
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": meeting})
		}).
		// Cancellation records metadata only. The claim row stays
		// promoted, so the slot is not reopened for booking.
		PATCH("/meetings/:id/cancel", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			var body types.CancelMeetingRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			expertId := ctx.GetUint("id")
			now := time.Now().UTC()
			conn := db.GetDb()
			err := conn.Transaction(func(tx *gorm.DB) error {
				var meeting models.Meeting
				err := tx.
					Where(&models.Meeting{ID: params.ID, ExpertID: expertId}).
					First(&meeting).
					Error
				if err != nil {
					return err
				}
				if meeting.Status == types.MEETING_CANCELED {
					return nil
				}
				result := tx.
					Model(&models.Meeting{}).
					Where("id = ? AND status = ?", meeting.ID, types.MEETING_CONFIRMED).
					Updates(map[string]any{
						"status":        types.MEETING_CANCELED,
						"canceled_at":   now,
						"cancel_reason": body.Reason,
					})
				if result.Error != nil {
					return result.Error
				}
				return nil
			})
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					ctx.Status(http.StatusNotFound)
					return
				}
				log.Printf("Error canceling meeting %d: %s\n", params.ID, err.Error())
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			ctx.Status(http.StatusOK)
		})
	return g
}
