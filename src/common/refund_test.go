package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeRefundTenPercentRetained(t *testing.T) {
	split := ComputeRefund(10000, 1000)
	assert.Equal(t, int64(9000), split.Refund)
	assert.Equal(t, int64(1000), split.Retained)
	assert.Equal(t, int64(10000), split.Refund+split.Retained)
}

// 125.00 at 10% retention refunds 112.50 and keeps 12.50.
func TestComputeRefundTypicalSessionPrice(t *testing.T) {
	split := ComputeRefund(12500, 1000)
	assert.Equal(t, int64(11250), split.Refund)
	assert.Equal(t, int64(1250), split.Retained)
}

// Half-even rounding on the refund figure; the retained share absorbs
// the remainder so the split always reconstructs the original amount.
func TestComputeRefundHalfEvenRounding(t *testing.T) {
	cases := []struct {
		amount    int64
		retainBps int64
		refund    int64
		retained  int64
	}{
		// 5 * 0.9 = 4.5, rounds to the even 4.
		{5, 1000, 4, 1},
		// 15 * 0.9 = 13.5, rounds to the even 14.
		{15, 1000, 14, 1},
		// 25 * 0.9 = 22.5, rounds to the even 22.
		{25, 1000, 22, 3},
		// 7 * 0.9 = 6.3, plain rounding down.
		{7, 1000, 6, 1},
		// 9 * 0.9 = 8.1, plain rounding down.
		{9, 1000, 8, 1},
		// 6 * 0.85 = 5.1 -> 5; 0.75 of 6 is 4.5 -> even 4.
		{6, 2500, 4, 2},
	}
	for _, c := range cases {
		split := ComputeRefund(c.amount, c.retainBps)
		assert.Equal(t, c.refund, split.Refund, "amount=%d bps=%d", c.amount, c.retainBps)
		assert.Equal(t, c.retained, split.Retained, "amount=%d bps=%d", c.amount, c.retainBps)
		assert.Equal(t, c.amount, split.Refund+split.Retained)
	}
}

func TestComputeRefundClamping(t *testing.T) {
	full := ComputeRefund(10000, -50)
	assert.Equal(t, int64(10000), full.Refund)
	assert.Equal(t, int64(0), full.Retained)

	none := ComputeRefund(10000, 20000)
	assert.Equal(t, int64(0), none.Refund)
	assert.Equal(t, int64(10000), none.Retained)

	zero := ComputeRefund(0, 1000)
	assert.Equal(t, int64(0), zero.Refund)
	assert.Equal(t, int64(0), zero.Retained)
}
