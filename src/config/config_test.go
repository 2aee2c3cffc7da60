package config

import (
	"testing"

	"vitacal/src/types"

	"github.com/stretchr/testify/assert"
)

func TestSettlementClassFor(t *testing.T) {
	for _, method := range []string{"card", "link", "paypal"} {
		class, ok := SettlementClassFor(method)
		assert.True(t, ok, method)
		assert.Equal(t, types.SETTLEMENT_INSTANT, class, method)
	}
	for _, method := range []string{"multibanco", "bank_transfer", "customer_balance", "boleto"} {
		class, ok := SettlementClassFor(method)
		assert.True(t, ok, method)
		assert.Equal(t, types.SETTLEMENT_DEFERRED, class, method)
	}

	_, ok := SettlementClassFor("cheque")
	assert.False(t, ok)
}

func TestDeferredMethods(t *testing.T) {
	methods := DeferredMethods()
	assert.Len(t, methods, 4)
	assert.Contains(t, methods, "multibanco")
	assert.NotContains(t, methods, "card")
}
