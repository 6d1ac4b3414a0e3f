package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"controlling_fluidics/internal/models"
	"controlling_fluidics/internal/repository"
)

const maxLogLimit = 1000

type EventLogService struct {
	eventRepo repository.EventRepo
}

func NewEventLogService(eventRepo repository.EventRepo) *EventLogService {
	return &EventLogService{eventRepo: eventRepo}
}

var (
	errInvalidTimeRange = fmt.Errorf("%w: time range From must be <= To", ErrInvalidRequest)
	errInvalidLimit     = fmt.Errorf("%w: limit must be between 0 and %d", ErrInvalidRequest, maxLogLimit)
)

// normalizeToUTC returns t in UTC, preserving zero time values.
func normalizeToUTC(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}

// normalizeEventKind trims spaces and lower-cases the kind filter.
func normalizeEventKind(s string) string {
	return strings.TrimSpace(strings.ToLower(s))
}

// normalizeAndValidateFilter prepares query parameters and validates the time range.
func normalizeAndValidateFilter(f LogFilter) (models.EventFilter, error) {
	from := normalizeToUTC(f.From)
	to := normalizeToUTC(f.To)

	if !from.IsZero() && !to.IsZero() && from.After(to) {
		return models.EventFilter{}, errInvalidTimeRange
	}
	if f.Limit < 0 || f.Limit > maxLogLimit {
		return models.EventFilter{}, errInvalidLimit
	}

	return models.EventFilter{
		From:      from,
		To:        to,
		Kind:      normalizeEventKind(f.Kind),
		SessionID: strings.TrimSpace(f.SessionID),
		Limit:     f.Limit,
	}, nil
}

func (s *EventLogService) List(ctx context.Context, f LogFilter) ([]models.RunEvent, error) {
	filter, err := normalizeAndValidateFilter(f)
	if err != nil {
		return nil, err
	}
	return s.eventRepo.List(ctx, filter)
}
