package common

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProviderFailureClassification(t *testing.T) {
	t.Run("Deadline expiry is a timeout", func(t *testing.T) {
		err := wrapProviderFailure(context.DeadlineExceeded)
		assert.True(t, errors.Is(err, ErrProviderTimeout))
	})

	t.Run("Transport failures are timeouts", func(t *testing.T) {
		dial := &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}
		err := wrapProviderFailure(fmt.Errorf("freebusy query: %w", dial))
		assert.True(t, errors.Is(err, ErrProviderTimeout))
	})

	t.Run("Provider rejections are not timeouts", func(t *testing.T) {
		rejected := errors.New("googleapi: Error 403: insufficient calendar permissions")
		err := wrapProviderFailure(rejected)
		assert.False(t, errors.Is(err, ErrProviderTimeout))
		assert.True(t, errors.Is(err, rejected))
	})
}
