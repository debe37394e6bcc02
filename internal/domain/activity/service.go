package activity

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/hms/hms/internal/platform/errs"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Record appends one audit entry. The signature matches the recorder
// interfaces the other domains declare, so the service plugs in without
// an adapter. Failures are logged by callers, never fatal.
func (s *Service) Record(ctx context.Context, entryType, title, description, actor string, entityID *uuid.UUID) error {
	if strings.TrimSpace(entryType) == "" || strings.TrimSpace(title) == "" {
		return errs.Validation("type", "type and title are required")
	}
	e := &Entry{
		Type:        entryType,
		Title:       title,
		Description: description,
		Actor:       actor,
		EntityID:    entityID,
	}
	if err := s.repo.Append(ctx, e); err != nil {
		log.Warn().Err(err).Str("type", entryType).Msg("activity append failed")
		return err
	}
	return nil
}

func (s *Service) List(ctx context.Context, entryType string, limit, offset int) ([]*Entry, int, error) {
	return s.repo.List(ctx, entryType, limit, offset)
}
