package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"corrpulse/pkg/contracts/domain"
)

// EventValidator validates decoded macro events against their struct
// tags. Satisfied by the middleware validator.
type EventValidator interface {
	ValidateStruct(v interface{}) error
}

// EventsService serves the bundled macro event calendar. The file is
// read and validated once, on first use.
type EventsService struct {
	path      string
	validator EventValidator
	logger    *slog.Logger

	once   sync.Once
	events []domain.MacroEvent
	err    error
}

// NewEventsService creates the calendar service backed by the JSON
// file at path.
func NewEventsService(path string, validator EventValidator, logger *slog.Logger) *EventsService {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventsService{path: path, validator: validator, logger: logger}
}

func (s *EventsService) load() ([]domain.MacroEvent, error) {
	s.once.Do(func() {
		raw, err := os.ReadFile(s.path)
		if err != nil {
			s.err = fmt.Errorf("read macro event calendar: %w", err)
			return
		}

		var events []domain.MacroEvent
		if err := json.Unmarshal(raw, &events); err != nil {
			s.err = fmt.Errorf("decode macro event calendar: %w", err)
			return
		}

		for i, event := range events {
			if err := s.validator.ValidateStruct(event); err != nil {
				s.err = fmt.Errorf("macro event calendar entry %d invalid: %w", i, err)
				return
			}
		}

		s.events = events
		s.logger.Info("macro event calendar loaded", "path", s.path, "events", len(events))
	})
	return s.events, s.err
}

// List returns macro events inside the inclusive date range.
func (s *EventsService) List(ctx context.Context, query domain.EventsQuery) (*domain.EventsResponse, error) {
	events, err := s.load()
	if err != nil {
		return nil, err
	}

	filtered := make([]domain.MacroEvent, 0, len(events))
	for _, event := range events {
		if event.Date >= query.From && event.Date <= query.To {
			filtered = append(filtered, event)
		}
	}
	return &domain.EventsResponse{Events: filtered}, nil
}
