package main

import (
	"errors"
	"log"
	"net/http"

	"vitacal/src/db"
	"vitacal/src/models"
	"vitacal/src/types"
	"vitacal/src/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func scheduleHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		GET("/schedule", func(ctx *gin.Context) {
			expertId := ctx.GetUint("id")
			schedule, err := utils.GetSchedule(expertId)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					ctx.Status(http.StatusNotFound)
					return
				}
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": schedule})
		}).
		PUT("/schedule", func(ctx *gin.Context) {
			var body types.UpsertScheduleRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				log.Printf("Error in validating request: %s\n", err.Error())
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			windows, err := utils.ValidateWindows(body.Windows)
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			expertId := ctx.GetUint("id")
			conn := db.GetDb()
			var schedule models.Schedule
			err = conn.Transaction(func(tx *gorm.DB) error {
				err := tx.
					Where(&models.Schedule{ExpertID: expertId}).
					First(&schedule).
					Error
				if err != nil {
					if !errors.Is(err, gorm.ErrRecordNotFound) {
						return err
					}
					schedule = models.Schedule{
						ExpertID:      expertId,
						Timezone:      body.Timezone,
						NoticeMinutes: body.NoticeMinutes,
					}
					if err := tx.Create(&schedule).Error; err != nil {
						return err
					}
				} else {
					err := tx.
						Model(&models.Schedule{}).
						Where(&models.Schedule{ID: schedule.ID}).
						Updates(map[string]any{
							"timezone":       body.Timezone,
							"notice_minutes": body.NoticeMinutes,
						}).
						Error
					if err != nil {
						return err
					}
					err = tx.
						Where(&models.AvailabilityWindow{ScheduleID: schedule.ID}).
						Delete(&models.AvailabilityWindow{}).
						Error
					if err != nil {
						return err
					}
				}
				for i := range windows {
					windows[i].ScheduleID = schedule.ID
				}
				if err := tx.Create(&windows).Error; err != nil {
					return err
				}
				return nil
			})
			if err != nil {
				log.Printf("Error saving schedule for expert %d: %s\n", expertId, err.Error())
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			saved, err := utils.GetSchedule(expertId)
			if err != nil {
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": saved})
		})
	return g
}
