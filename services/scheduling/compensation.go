package scheduling

import (
	"context"
	"errors"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"govbook/models"
)

// releaseWithRetry returns a reservation, retrying transient storage failures with
// exponential backoff. It runs detached from the caller's cancellation. When it gives
// up the unit stays claimed; that is logged as an operational alert and counted.
func (e *Engine) releaseWithRetry(ctx context.Context, token models.ReservationToken, reason string) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()

	policy := backoff.WithContext(backoff.WithMaxRetries(e.newBackOff(), compensationRetries), ctx)
	attempts := 0
	err := backoff.Retry(func() error {
		attempts++
		err := e.slots.Release(ctx, token)
		if err == nil {
			return nil
		}
		if errors.Is(err, models.ErrStorageUnavailable) {
			return err
		}
		return backoff.Permanent(err)
	}, policy)
	if err != nil {
		e.metrics.IncrementCapacityLeak()
		e.logger.Error("Slot release failed, capacity leaked",
			zap.Bool("operational_alert", true),
			zap.String("reason", reason),
			zap.String("slotId", token.SlotID),
			zap.String("appointmentRef", token.AppointmentRef),
			zap.Int("attempts", attempts),
			zap.Error(err))
		return err
	}
	return nil
}
