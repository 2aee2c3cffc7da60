package main

import (
	"errors"
	"log"
	"net/http"
	"time"

	"vitacal/src/common"
	"vitacal/src/db"
	"vitacal/src/models"
	"vitacal/src/types"
	"vitacal/src/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// availabilityHandlers exposes the render-path valid-times query. Results
// are advisory: every slot is re-validated at reservation time.
func availabilityHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		GET("/experts/:id/events/:eventId/availability", func(ctx *gin.Context) {
			var params types.AvailabilityURIParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			var query types.AvailabilityQueryParams
			if err := ctx.ShouldBindQuery(&query); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			from, err := time.Parse(time.RFC3339, query.From)
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			to, err := time.Parse(time.RFC3339, query.To)
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			if !from.Before(to) {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": "'from' must be before 'to'"})
				return
			}

			conn := db.GetDb()
			var expert models.Expert
			if err := conn.Where(&models.Expert{ID: params.ExpertID}).First(&expert).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					ctx.Status(http.StatusNotFound)
					return
				}
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			var event models.Event
			err = conn.
				Where(&models.Event{ID: params.EventID, ExpertID: params.ExpertID, Active: true}).
				First(&event).
				Error
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					ctx.Status(http.StatusNotFound)
					return
				}
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			schedule, err := utils.GetSchedule(params.ExpertID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					ctx.JSON(http.StatusOK, gin.H{"data": []time.Time{}})
					return
				}
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}

			busy, err := common.BusyForRender(ctx, expert.CalendarID, from, to)
			if err != nil {
				log.Printf("[Availability] Busy-time lookup failed for expert %d: %s\n", expert.ID, err.Error())
				ctx.JSON(http.StatusServiceUnavailable, gin.H{"error": "availability is temporarily unavailable"})
				return
			}
			claims, err := claimedIntervals(params.ExpertID, from, to)
			if err != nil {
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			busy = append(busy, claims...)

			now := time.Now().UTC()
			times, err := common.ComputeValidTimes(schedule, &event, busy, from, to, now)
			if err != nil {
				log.Printf("[Availability] Error computing valid times: %s\n", err.Error())
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": times})
		})
	return g
}

// claimedIntervals folds active holds and promoted claims into the busy
// set so the render path never offers a slot the write path would refuse.
func claimedIntervals(expertId uint, from, to time.Time) ([]types.BusyInterval, error) {
	conn := db.GetDb()
	var claims []models.SlotReservation
	err := conn.
		Select("start_at", "end_at").
		Where("expert_id = ? AND status IN ? AND start_at < ? AND end_at > ?",
			expertId,
			[]types.ReservationStatus{types.RESERVATION_HELD, types.RESERVATION_PROMOTED},
			to,
			from,
		).
		Find(&claims).
		Error
	if err != nil {
		return nil, err
	}
	intervals := make([]types.BusyInterval, 0, len(claims))
	for _, c := range claims {
		intervals = append(intervals, types.BusyInterval{Start: c.StartAt, End: c.EndAt})
	}
	return intervals, nil
}
