package common

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"vitacal/src/db"
	"vitacal/src/types"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newClaimsMock(t *testing.T) sqlmock.Sqlmock {
	conn, mock, err := sqlmock.New()
	assert.Nil(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: conn}), &gorm.Config{
		TranslateError: true,
	})
	assert.Nil(t, err)

	db.NewDB(gormDB)
	t.Cleanup(func() { conn.Close() })
	return mock
}

var reservationColumns = []string{
	"id", "expert_id", "event_id",
	"guest_name", "guest_email", "guest_timezone",
	"start_at", "end_at", "expires_at",
	"payment_reference", "payment_method", "amount", "currency", "status",
}

func TestPromoteBeforeExpiry(t *testing.T) {
	mock := newClaimsMock(t)

	startAt := time.Date(2026, 2, 20, 9, 0, 0, 0, time.UTC)
	expiresAt := time.Date(2026, 2, 15, 12, 0, 0, 0, time.UTC)
	now := expiresAt.Add(-time.Second)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "slot_reservations" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT (.+) FROM "slot_reservations"`).
		WillReturnRows(sqlmock.NewRows(reservationColumns).AddRow(
			5, 1, 7,
			"Ada", "ada@example.com", "Europe/Lisbon",
			startAt, startAt.Add(30*time.Minute), expiresAt,
			"pi_boundary", "multibanco", int64(5000), "eur", "promoted",
		))
	mock.ExpectQuery(`SELECT (.+) FROM "events"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "expert_id", "name", "duration_minutes", "price", "currency", "active"}).
			AddRow(7, 1, "Intro call 30 min", 30, int64(5000), "eur", true))
	mock.ExpectQuery(`INSERT INTO "meetings"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectCommit()

	meeting, err := Promote(5, now)
	assert.Nil(t, err)
	assert.NotNil(t, meeting)
	assert.Equal(t, uint(5), meeting.ReservationID)
	assert.Equal(t, types.MEETING_CONFIRMED, meeting.Status)
	assert.True(t, strings.HasPrefix(meeting.Reference, "intro-call-30-min-"))
	assert.Nil(t, mock.ExpectationsWereMet())
}

func TestPromoteAfterExpiry(t *testing.T) {
	mock := newClaimsMock(t)

	expiresAt := time.Date(2026, 2, 15, 12, 0, 0, 0, time.UTC)
	now := expiresAt.Add(time.Second)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "slot_reservations" SET`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT (.+) FROM "slot_reservations"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "status", "expires_at"}).
			AddRow(5, "held", expiresAt))
	mock.ExpectRollback()

	meeting, err := Promote(5, now)
	assert.Nil(t, meeting)
	assert.True(t, errors.Is(err, ErrExpired))
	assert.Nil(t, mock.ExpectationsWereMet())
}

func TestPromoteDuplicateSettlement(t *testing.T) {
	mock := newClaimsMock(t)

	expiresAt := time.Date(2026, 2, 15, 12, 0, 0, 0, time.UTC)
	now := expiresAt.Add(-time.Minute)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "slot_reservations" SET`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT (.+) FROM "slot_reservations"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "status", "expires_at"}).
			AddRow(5, "promoted", expiresAt))
	mock.ExpectRollback()

	meeting, err := Promote(5, now)
	assert.Nil(t, meeting)
	assert.True(t, errors.Is(err, ErrAlreadyPromoted))
	assert.Nil(t, mock.ExpectationsWereMet())
}

func TestApplySettlementPromotesWhileHeld(t *testing.T) {
	mock := newClaimsMock(t)

	startAt := time.Date(2026, 2, 20, 9, 0, 0, 0, time.UTC)
	expiresAt := time.Date(2026, 2, 15, 12, 0, 0, 0, time.UTC)
	now := expiresAt.Add(-time.Second)

	mock.ExpectQuery(`SELECT (.+) FROM "slot_reservations"`).
		WillReturnRows(sqlmock.NewRows(reservationColumns).AddRow(
			5, 1, 7,
			"Ada", "ada@example.com", "Europe/Lisbon",
			startAt, startAt.Add(30*time.Minute), expiresAt,
			"pi_boundary", "multibanco", int64(5000), "eur", "held",
		))
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "slot_reservations" SET`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT (.+) FROM "slot_reservations"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "status", "expires_at"}).
			AddRow(5, "promoted", expiresAt))
	mock.ExpectRollback()

	signal := types.SettlementSignal{PaymentReference: "pi_boundary"}
	err := ApplySettlement(context.Background(), &signal, now)
	assert.Nil(t, err)
	assert.Nil(t, mock.ExpectationsWereMet())
}

func TestApplySettlementIgnoresSettledConflict(t *testing.T) {
	mock := newClaimsMock(t)

	startAt := time.Date(2026, 2, 20, 9, 0, 0, 0, time.UTC)
	expiresAt := time.Date(2026, 2, 15, 12, 0, 0, 0, time.UTC)
	now := expiresAt.Add(time.Hour)

	mock.ExpectQuery(`SELECT (.+) FROM "slot_reservations"`).
		WillReturnRows(sqlmock.NewRows(reservationColumns).AddRow(
			5, 1, 7,
			"Ada", "ada@example.com", "Europe/Lisbon",
			startAt, startAt.Add(30*time.Minute), expiresAt,
			"pi_late", "multibanco", int64(5000), "eur", "conflicted",
		))

	signal := types.SettlementSignal{PaymentReference: "pi_late"}
	err := ApplySettlement(context.Background(), &signal, now)
	assert.Nil(t, err)
	assert.Nil(t, mock.ExpectationsWereMet())
}

func TestApplySettlementUnknownReference(t *testing.T) {
	mock := newClaimsMock(t)

	mock.ExpectQuery(`SELECT (.+) FROM "slot_reservations"`).
		WillReturnRows(sqlmock.NewRows(reservationColumns))

	signal := types.SettlementSignal{PaymentReference: "pi_never_seen"}
	err := ApplySettlement(context.Background(), &signal, time.Now())
	assert.Nil(t, err)
	assert.Nil(t, mock.ExpectationsWereMet())
}
