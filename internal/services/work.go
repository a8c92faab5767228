package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/zidesign/catalog/internal/metrics"
	"github.com/zidesign/catalog/internal/moderation"
	"github.com/zidesign/catalog/internal/mq"
	"github.com/zidesign/catalog/pkg/validation"
	"github.com/zidesign/catalog/types"
)

// WorkRepository defines persistence operations for works.
type WorkRepository interface {
	List(ctx context.Context, filter types.WorkFilter) ([]types.Work, error)
	Get(ctx context.Context, id string) (types.Work, error)
	Create(ctx context.Context, work types.Work) (types.Work, error)
	UpdateStatusIfPending(ctx context.Context, id string, status types.Status) (types.Work, error)
	Delete(ctx context.Context, id string) error
}

// ImageStore persists work preview images.
type ImageStore interface {
	PutImage(ctx context.Context, authorID, title, encoded string) (key, url string, err error)
	Remove(ctx context.Context, key string) error
}

// EventPublisher announces work lifecycle events.
type EventPublisher interface {
	PublishEvent(ctx context.Context, ev mq.WorkEvent) (string, error)
}

// WorkService is the authoritative work repository: it validates input,
// stamps identity-derived fields and routes every status change through
// the moderation engine.
type WorkService struct {
	repo    WorkRepository
	images  ImageStore
	events  EventPublisher
	metrics *metrics.Metrics
	log     logrus.FieldLogger
	now     func() time.Time
}

// WorkOption configures optional WorkService collaborators.
type WorkOption func(*WorkService)

// WithImages enables preview image uploads.
func WithImages(images ImageStore) WorkOption {
	return func(s *WorkService) { s.images = images }
}

// WithEvents enables lifecycle event publishing.
func WithEvents(events EventPublisher) WorkOption {
	return func(s *WorkService) { s.events = events }
}

// WithMetrics enables lifecycle counters.
func WithMetrics(m *metrics.Metrics) WorkOption {
	return func(s *WorkService) { s.metrics = m }
}

func NewWorkService(repo WorkRepository, log logrus.FieldLogger, opts ...WorkOption) *WorkService {
	s := &WorkService{
		repo: repo,
		log:  log,
		now:  func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns works matching filter, newest first.
func (s *WorkService) List(ctx context.Context, filter types.WorkFilter) ([]types.Work, error) {
	return s.repo.List(ctx, filter)
}

// Create validates input and stores a new work owned by actor. Admins
// publish directly; everyone else lands in the moderation queue.
func (s *WorkService) Create(ctx context.Context, input types.WorkInput, actor types.User) (types.Work, error) {
	status, err := moderation.InitialStatus(actor.Role)
	if err != nil {
		return types.Work{}, err
	}
	if strings.TrimSpace(actor.ID) == "" {
		return types.Work{}, fmt.Errorf("%w: anonymous submission", types.ErrUnauthorized)
	}

	input = input.Normalize()
	if err := validation.Struct(input); err != nil {
		return types.Work{}, err
	}

	work := types.Work{
		Title:        input.Title,
		Description:  input.Description,
		Category:     input.Category,
		License:      input.License,
		Tags:         input.Tags,
		AuthorID:     actor.ID,
		AuthorName:   actor.Name,
		AuthorAvatar: actor.Avatar,
		Status:       status,
		CreatedAt:    s.now(),
	}

	if input.ImageBase64 != "" {
		if s.images == nil {
			return types.Work{}, fmt.Errorf("%w: image uploads are disabled", types.ErrValidation)
		}
		key, url, err := s.images.PutImage(ctx, actor.ID, work.Title, input.ImageBase64)
		if err != nil {
			s.countUpload("error")
			return types.Work{}, err
		}
		s.countUpload("ok")
		work.ImageKey, work.ImageURL = key, url
	}

	work, err = s.repo.Create(ctx, work)
	if err != nil {
		if work.ImageKey != "" {
			s.removeImage(ctx, work.ImageKey)
		}
		return types.Work{}, err
	}

	if s.metrics != nil {
		s.metrics.WorksSubmitted.WithLabelValues(work.Status.String()).Inc()
	}
	s.log.WithFields(logrus.Fields{
		"work_id":   work.ID,
		"author_id": work.AuthorID,
		"status":    work.Status.String(),
	}).Info("work submitted")
	s.publish(ctx, mq.EventWorkSubmitted, actor, work)
	return work, nil
}

// SetStatus applies a moderation decision and returns the canonical
// record.
func (s *WorkService) SetStatus(ctx context.Context, id string, status types.Status, actor types.User) (types.Work, error) {
	if err := moderation.CanModerate(actor); err != nil {
		return types.Work{}, err
	}
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return types.Work{}, err
	}
	if err := moderation.Transition(actor, current.Status, status); err != nil {
		return types.Work{}, err
	}

	work, err := s.repo.UpdateStatusIfPending(ctx, id, status)
	if err != nil {
		return types.Work{}, err
	}

	if s.metrics != nil {
		s.metrics.Moderations.WithLabelValues(work.Status.String()).Inc()
	}
	s.log.WithFields(logrus.Fields{
		"work_id":  work.ID,
		"actor_id": actor.ID,
		"status":   work.Status.String(),
	}).Info("work moderated")
	if ev, ok := mq.EventForStatus(work.Status); ok {
		s.publish(ctx, ev, actor, work)
	}
	return work, nil
}

// Delete removes a work. Owners may delete their own works at any
// status; admins may delete any work.
func (s *WorkService) Delete(ctx context.Context, id string, actor types.User) error {
	work, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := moderation.AuthorizeDelete(actor, work); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	if work.ImageKey != "" {
		s.removeImage(ctx, work.ImageKey)
	}

	if s.metrics != nil {
		s.metrics.WorksDeleted.Inc()
	}
	s.log.WithFields(logrus.Fields{"work_id": id, "actor_id": actor.ID}).Info("work deleted")
	s.publish(ctx, mq.EventWorkDeleted, actor, work)
	return nil
}

func (s *WorkService) removeImage(ctx context.Context, key string) {
	if s.images == nil {
		return
	}
	if err := s.images.Remove(ctx, key); err != nil {
		s.log.WithError(err).WithField("key", key).Warn("failed to remove work image")
	}
}

// publish is best effort: the mutation already happened, so a broker
// failure is logged and counted but not returned.
func (s *WorkService) publish(ctx context.Context, typ mq.EventType, actor types.User, work types.Work) {
	if s.events == nil {
		return
	}
	_, err := s.events.PublishEvent(ctx, mq.WorkEvent{
		Type:       typ,
		WorkID:     work.ID,
		ActorID:    actor.ID,
		OccurredAt: s.now(),
		Work:       work,
	})
	if err == nil {
		return
	}
	if s.metrics != nil {
		s.metrics.EventFailures.Inc()
	}
	entry := s.log.WithError(err).WithFields(logrus.Fields{"event": string(typ), "work_id": work.ID})
	if errors.Is(err, context.Canceled) {
		entry.Debug("event publish cancelled")
		return
	}
	entry.Warn("failed to publish work event")
}

func (s *WorkService) countUpload(result string) {
	if s.metrics != nil {
		s.metrics.ImageUploads.WithLabelValues(result).Inc()
	}
}
