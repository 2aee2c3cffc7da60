package common

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"time"

	"vitacal/src/config"
	"vitacal/src/lib"
	"vitacal/src/types"
)

// BusyTimeProvider answers "when is this calendar occupied" with opaque
// UTC intervals. No event content crosses this boundary.
type BusyTimeProvider interface {
	GetBusyIntervals(ctx context.Context, calendarId string, rangeStart, rangeEnd time.Time) ([]types.BusyInterval, error)
}

// CalendarBusyTimeProvider queries Google Calendar FreeBusy with a bounded
// per-attempt timeout and a small retry budget.
type CalendarBusyTimeProvider struct{}

func (p *CalendarBusyTimeProvider) GetBusyIntervals(ctx context.Context, calendarId string, rangeStart, rangeEnd time.Time) ([]types.BusyInterval, error) {
	var lastErr error
	for attempt := 0; attempt <= config.BusyProviderRetries; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, config.BusyProviderTimeout)
		intervals, err := lib.GAPIQueryFreeBusy(attemptCtx, calendarId, rangeStart, rangeEnd)
		cancel()
		if err == nil {
			return intervals, nil
		}
		lastErr = err
		log.Printf("[FreeBusy] attempt %d failed for %s: %s\n", attempt+1, calendarId, err.Error())
	}
	return nil, wrapProviderFailure(lastErr)
}

// wrapProviderFailure tags deadline and transport failures as
// ErrProviderTimeout so handlers answer with a retryable status. A
// request the provider rejected outright, such as bad credentials or an
// unknown calendar, is not a timeout and surfaces as a plain failure.
func wrapProviderFailure(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %s", ErrProviderTimeout, err.Error())
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%w: %s", ErrProviderTimeout, err.Error())
	}
	return fmt.Errorf("busy-time provider request failed: %w", err)
}

var busyProvider BusyTimeProvider = &CalendarBusyTimeProvider{}

// NewBusyTimeProvider replaces the provider instance with a custom
// implementation.
func NewBusyTimeProvider(p BusyTimeProvider) {
	busyProvider = p
}

// BusyForReserve fetches busy intervals for the write path. A provider
// failure here is a hard failure: the engine never reserves against
// unknown availability.
func BusyForReserve(ctx context.Context, calendarId string, rangeStart, rangeEnd time.Time) ([]types.BusyInterval, error) {
	intervals, err := busyProvider.GetBusyIntervals(ctx, calendarId, rangeStart, rangeEnd)
	if err != nil {
		return nil, err
	}
	lib.CacheBusyIntervals(calendarId, rangeStart, rangeEnd, intervals, config.BusyCacheTTL)
	return intervals, nil
}

// BusyForRender fetches busy intervals for the read path. On provider
// failure a cached response is acceptable; the result is re-validated at
// write time anyway.
func BusyForRender(ctx context.Context, calendarId string, rangeStart, rangeEnd time.Time) ([]types.BusyInterval, error) {
	intervals, err := busyProvider.GetBusyIntervals(ctx, calendarId, rangeStart, rangeEnd)
	if err == nil {
		lib.CacheBusyIntervals(calendarId, rangeStart, rangeEnd, intervals, config.BusyCacheTTL)
		return intervals, nil
	}
	if cached, ok := lib.CachedBusyIntervals(calendarId, rangeStart, rangeEnd); ok {
		log.Printf("[FreeBusy] serving cached intervals for %s after provider failure\n", calendarId)
		return cached, nil
	}
	return nil, err
}
