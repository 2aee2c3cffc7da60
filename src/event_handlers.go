package main

import (
	"errors"
	"log"
	"net/http"

	"vitacal/src/db"
	"vitacal/src/models"
	"vitacal/src/types"

	"github.com/gin-gonic/gin"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

func eventHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		POST("/events", func(ctx *gin.Context) {
			var body types.CreateEventRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				log.Printf("Error in validating request: %s\n", err.Error())
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			if body.DurationMinutes%15 != 0 {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": "duration must be a multiple of 15 minutes"})
				return
			}
			expertId := ctx.GetUint("id")
			event := models.Event{
				ExpertID:        expertId,
				Name:            body.Name,
				Slug:            slug.Make(body.Name),
				DurationMinutes: body.DurationMinutes,
				NoticeMinutes:   body.NoticeMinutes,
				Price:           body.Price,
				Currency:        body.Currency,
				Active:          true,
			}
			if body.Description != "" {
				event.Description = &body.Description
			}
			conn := db.GetDb()
			if err := conn.Create(&event).Error; err != nil {
				log.Printf("Error creating event: %s\n", err.Error())
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"data": event})
		}).
		GET("/events", func(ctx *gin.Context) {
			expertId := ctx.GetUint("id")
			var events []models.Event
			conn := db.GetDb()
			err := conn.
				Where(&models.Event{ExpertID: expertId}).
				Order("created_at desc").
				Find(&events).
				Error
			if err != nil {
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": events})
		}).
		// Definitions referenced by a confirmed meeting stay immutable;
		// deactivation is the only allowed change.
		PATCH("/events/:id/deactivate", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			expertId := ctx.GetUint("id")
			conn := db.GetDb()
			result := conn.
				Model(&models.Event{}).
				Where(&models.Event{ID: params.ID, ExpertID: expertId}).
				Update("active", false)
			if result.Error != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": result.Error.Error()})
				return
			}
			if result.RowsAffected == 0 {
				ctx.Status(http.StatusNotFound)
				return
			}
			ctx.Status(http.StatusOK)
		})
	return g
}

// publicEventRoutes lists an expert's bookable services for the booking
// page.
func publicEventRoutes(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		GET("/experts/:id/events", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			conn := db.GetDb()
			var expert models.Expert
			err := conn.
				Select("id", "name", "timezone").
				Where(&models.Expert{ID: params.ID}).
				First(&expert).
				Error
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					ctx.Status(http.StatusNotFound)
					return
				}
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			var events []models.Event
			err = conn.
				Where(&models.Event{ExpertID: params.ID, Active: true}).
				Order("name asc").
				Find(&events).
				Error
			if err != nil {
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"expert": expert, "events": events})
		})
	return g
}
