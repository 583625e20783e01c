package scheduling

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"govbook/models"
	"govbook/services/authz"
)

// SubmitFeedback records the owning citizen's rating of a completed appointment. It is write-once.
func (e *Engine) SubmitFeedback(ctx context.Context, p models.Principal, number string, in models.FeedbackInput) (*models.Appointment, error) {
	if err := authz.Require(p, models.RoleCitizen); err != nil {
		return nil, err
	}
	appt, err := e.appointments.GetByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	if appt.Citizen != p.UserID {
		return nil, fmt.Errorf("%w: only the citizen who booked may leave feedback", models.ErrForbidden)
	}
	if err := feedbackAllowed(appt); err != nil {
		return nil, err
	}

	if in.Rating < 1 || in.Rating > 5 {
		return nil, models.NewValidationError("rating", "must be between 1 and 5")
	}
	comment := strings.TrimSpace(in.Comment)
	if n := utf8.RuneCountInString(comment); n > e.cfg.FeedbackCommentMaxLength {
		return nil, models.NewValidationError("comment", fmt.Sprintf("must be at most %d characters, got %d", e.cfg.FeedbackCommentMaxLength, n))
	}

	updated, err := e.appointments.SetFeedback(ctx, appt.ID, models.Feedback{
		Rating:      in.Rating,
		Comment:     comment,
		SubmittedAt: e.now(),
	})
	if errors.Is(err, models.ErrConflict) {
		current, readErr := e.appointments.GetByID(ctx, appt.ID)
		if readErr != nil {
			return nil, readErr
		}
		if err := feedbackAllowed(current); err != nil {
			return nil, err
		}
		return nil, models.ErrConflict
	}
	if err != nil {
		return nil, err
	}

	e.logger.Info("Feedback recorded",
		zap.String("appointmentNumber", number),
		zap.Int("rating", in.Rating))
	return updated, nil
}

func feedbackAllowed(appt *models.Appointment) error {
	if appt.Status != models.StatusCompleted {
		return models.NewInvalidTransition(appt.Status, models.StatusCompleted)
	}
	if appt.Feedback != nil {
		return models.ErrDuplicateFeedback
	}
	return nil
}
