package main

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"vitacal/src/db"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"github.com/tidwall/gjson"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type TestSuite struct {
	suite.Suite
	DB   *gorm.DB
	Mock *sqlmock.Sqlmock
}

func NewMockDB() (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		log.Fatalf("An error '%s' was not expected when opening a stub database connection", err)
	}

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{
		TranslateError: true,
	})
	if err != nil {
		log.Fatalf("An error '%s' was not expected when opening gorm database", err)
	}

	return gormDB, mock
}

// expertMiddleware stands in for the JWT middleware on authorized routes
// under test: handlers only need the expert id in the context.
func expertMiddleware(ctx *gin.Context) {
	ctx.Set("id", uint(1))
	ctx.Set("email", "expert@example.com")
}

func (s *TestSuite) SetupSuite() {
	registerValidators()

	d, mock := NewMockDB()
	db.NewDB(d)
	s.DB = d
	s.Mock = &mock
}

func (s *TestSuite) TearDownSuite() {
	inner, err := s.DB.DB()
	if err != nil {
		log.Printf("Error accessing inner db instance: %s\n", err.Error())
		return
	}
	inner.Close()
}

func (s *TestSuite) TestPingRoute() {
	router := setupRouter()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/", nil)
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), 200, w.Code)
}

func (s *TestSuite) TestMaintenanceMode() {
	os.Setenv("MAINTENANCE_MODE", "true")
	defer os.Unsetenv("MAINTENANCE_MODE")

	router := setupRouter()
	router = maintenanceModeMiddleware(router)
	apiv1Group(router)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/v1", nil)
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), 503, w.Code)
}

func (s *TestSuite) TestBookingValidation() {
	router := setupRouter()
	publicRoutes(router)

	s.Run("Should reject an incomplete booking request", func() {
		w := httptest.NewRecorder()
		jbody := map[string]any{
			"expert": 1,
			"event":  1,
		}
		sbody, _ := json.Marshal(&jbody)
		req, _ := http.NewRequest("POST", "/api/v1/bookings", strings.NewReader(string(sbody)))
		router.ServeHTTP(w, req)

		assert.Equal(s.T(), 400, w.Code)
		rbytes, err := io.ReadAll(w.Body)
		assert.Nil(s.T(), err)
		errMsg := gjson.Get(string(rbytes), "error").String()
		assert.NotEmpty(s.T(), errMsg)
	})

	s.Run("Should reject a non-IANA guest timezone", func() {
		w := httptest.NewRecorder()
		jbody := map[string]any{
			"expert":         1,
			"event":          1,
			"start":          "2026-02-10T09:00:00Z",
			"guest_name":     "Ada",
			"guest_email":    "ada@example.com",
			"guest_timezone": "GMT+1",
			"payment_method": "multibanco",
		}
		sbody, _ := json.Marshal(&jbody)
		req, _ := http.NewRequest("POST", "/api/v1/bookings", strings.NewReader(string(sbody)))
		router.ServeHTTP(w, req)

		assert.Equal(s.T(), 400, w.Code)
	})

	s.Run("Should reject an unsupported payment method", func() {
		w := httptest.NewRecorder()
		jbody := map[string]any{
			"expert":         1,
			"event":          1,
			"start":          "2026-02-10T09:00:00Z",
			"guest_name":     "Ada",
			"guest_email":    "ada@example.com",
			"guest_timezone": "Europe/Lisbon",
			"payment_method": "cheque",
		}
		sbody, _ := json.Marshal(&jbody)
		req, _ := http.NewRequest("POST", "/api/v1/bookings", strings.NewReader(string(sbody)))
		router.ServeHTTP(w, req)

		assert.Equal(s.T(), 400, w.Code)
		rbytes, err := io.ReadAll(w.Body)
		assert.Nil(s.T(), err)
		assert.Contains(s.T(), gjson.Get(string(rbytes), "error").String(), "payment method")
	})
}

func (s *TestSuite) TestAvailabilityValidation() {
	router := setupRouter()
	publicRoutes(router)

	s.Run("Should require a query range", func() {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/v1/experts/1/events/2/availability", nil)
		router.ServeHTTP(w, req)

		assert.Equal(s.T(), 400, w.Code)
	})

	s.Run("Should reject a malformed range bound", func() {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/v1/experts/1/events/2/availability?from=tomorrow&to=2026-02-10T00:00:00Z", nil)
		router.ServeHTTP(w, req)

		assert.Equal(s.T(), 400, w.Code)
	})

	s.Run("Should reject an inverted range", func() {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/v1/experts/1/events/2/availability?from=2026-02-11T00:00:00Z&to=2026-02-10T00:00:00Z", nil)
		router.ServeHTTP(w, req)

		assert.Equal(s.T(), 400, w.Code)
		rbytes, err := io.ReadAll(w.Body)
		assert.Nil(s.T(), err)
		assert.Contains(s.T(), gjson.Get(string(rbytes), "error").String(), "'from' must be before 'to'")
	})
}

func (s *TestSuite) TestScheduleValidation() {
	router := setupRouter()
	apiv1 := apiv1Group(router)
	apiv1.Use(expertMiddleware)
	scheduleHandlers(apiv1)

	s.Run("Should reject windows with a bad time of day", func() {
		w := httptest.NewRecorder()
		jbody := map[string]any{
			"timezone": "Europe/Lisbon",
			"windows": []map[string]any{
				{"weekday": 1, "start": "9am", "end": "17:00"},
			},
		}
		sbody, _ := json.Marshal(&jbody)
		req, _ := http.NewRequest("PUT", "/api/v1/schedule", strings.NewReader(string(sbody)))
		router.ServeHTTP(w, req)

		assert.Equal(s.T(), 400, w.Code)
	})

	s.Run("Should reject an inverted window", func() {
		w := httptest.NewRecorder()
		jbody := map[string]any{
			"timezone": "Europe/Lisbon",
			"windows": []map[string]any{
				{"weekday": 1, "start": "17:00", "end": "09:00"},
			},
		}
		sbody, _ := json.Marshal(&jbody)
		req, _ := http.NewRequest("PUT", "/api/v1/schedule", strings.NewReader(string(sbody)))
		router.ServeHTTP(w, req)

		assert.Equal(s.T(), 400, w.Code)
	})
}

func (s *TestSuite) TestEventValidation() {
	router := setupRouter()
	apiv1 := apiv1Group(router)
	apiv1.Use(expertMiddleware)
	eventHandlers(apiv1)

	s.Run("Should reject an off-grid duration", func() {
		w := httptest.NewRecorder()
		jbody := map[string]any{
			"name":             "Intro call",
			"duration_minutes": 40,
			"price":            5000,
			"currency":         "eur",
		}
		sbody, _ := json.Marshal(&jbody)
		req, _ := http.NewRequest("POST", "/api/v1/events", strings.NewReader(string(sbody)))
		router.ServeHTTP(w, req)

		assert.Equal(s.T(), 400, w.Code)
	})
}

func TestRunner(t *testing.T) {
	suite.Run(t, new(TestSuite))
}
