package common

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestSlotConflictDetection(t *testing.T) {
	t.Run("Unique violation on the claim tuple", func(t *testing.T) {
		assert.True(t, isSlotConflict(gorm.ErrDuplicatedKey))
		assert.True(t, isSlotConflict(fmt.Errorf("create failed: %w", gorm.ErrDuplicatedKey)))
	})

	t.Run("Exclusion violation on an overlapping interval", func(t *testing.T) {
		excl := &pgconn.PgError{
			Code:           "23P01",
			ConstraintName: "slot_claims_no_overlap",
		}
		assert.True(t, isSlotConflict(excl))
		assert.True(t, isSlotConflict(fmt.Errorf("create failed: %w", excl)))
	})

	t.Run("Unrelated errors pass through", func(t *testing.T) {
		assert.False(t, isSlotConflict(errors.New("connection reset")))
		assert.False(t, isSlotConflict(gorm.ErrRecordNotFound))
		assert.False(t, isSlotConflict(&pgconn.PgError{Code: "23503"}))
	})
}
