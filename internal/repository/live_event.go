package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"live_event_platform/internal/domain"
	apperrors "live_event_platform/pkg/errors"
	"live_event_platform/pkg/logger"
)

type LiveEventRepository interface {
	GetByID(ctx context.Context, liveEventID string) (*domain.LiveEvent, error)
	// AddModerator добавляет id в moderator_ids с дедупликацией на стороне БД
	AddModerator(ctx context.Context, liveEventID, attendeeID string) error
	AddLiveAttendee(ctx context.Context, liveEventID, attendeeID string) (*domain.LiveEvent, error)
	RemoveLiveAttendee(ctx context.Context, liveEventID, attendeeID string) (*domain.LiveEvent, error)
}

type liveEventRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewLiveEventRepository(db *pgxpool.Pool, log logger.Logger) LiveEventRepository {
	return &liveEventRepository{db: db, log: log}
}

const liveEventColumns = `live_event_id, moderator_ids, live_attendee_ids, talent_meeting_id, talent_attendee_id`

func scanLiveEvent(row pgx.Row) (*domain.LiveEvent, error) {
	event := &domain.LiveEvent{}
	err := row.Scan(
		&event.LiveEventID, &event.ModeratorIDs, &event.LiveAttendeeIDs,
		&event.TalentMeetingID, &event.TalentAttendeeID,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrEventNotFound
		}
		return nil, err
	}
	return event, nil
}

func (r *liveEventRepository) GetByID(ctx context.Context, liveEventID string) (*domain.LiveEvent, error) {
	query := `SELECT ` + liveEventColumns + ` FROM live_events WHERE live_event_id = $1`

	event, err := scanLiveEvent(r.db.QueryRow(ctx, query, liveEventID))
	if err != nil {
		if !errors.Is(err, apperrors.ErrEventNotFound) {
			r.log.Error("Failed to get live event", "error", err, "live_event_id", liveEventID)
		}
		return nil, err
	}

	return event, nil
}

func (r *liveEventRepository) AddModerator(ctx context.Context, liveEventID, attendeeID string) error {
	// Дедупликация в условии: set-add-семантика без read-modify-write
	query := `
		UPDATE live_events
		SET moderator_ids = array_append(moderator_ids, $2)
		WHERE live_event_id = $1 AND NOT ($2 = ANY(moderator_ids))
	`

	_, err := r.db.Exec(ctx, query, liveEventID, attendeeID)
	if err != nil {
		r.log.Error("Failed to add moderator", "error", err, "live_event_id", liveEventID)
		return err
	}

	return nil
}

func (r *liveEventRepository) AddLiveAttendee(ctx context.Context, liveEventID, attendeeID string) (*domain.LiveEvent, error) {
	query := `
		UPDATE live_events
		SET live_attendee_ids = CASE
			WHEN $2 = ANY(live_attendee_ids) THEN live_attendee_ids
			ELSE array_append(live_attendee_ids, $2)
		END
		WHERE live_event_id = $1
		RETURNING ` + liveEventColumns

	event, err := scanLiveEvent(r.db.QueryRow(ctx, query, liveEventID, attendeeID))
	if err != nil {
		if !errors.Is(err, apperrors.ErrEventNotFound) {
			r.log.Error("Failed to add live attendee", "error", err, "live_event_id", liveEventID)
		}
		return nil, err
	}

	return event, nil
}

func (r *liveEventRepository) RemoveLiveAttendee(ctx context.Context, liveEventID, attendeeID string) (*domain.LiveEvent, error) {
	query := `
		UPDATE live_events
		SET live_attendee_ids = array_remove(live_attendee_ids, $2)
		WHERE live_event_id = $1
		RETURNING ` + liveEventColumns

	event, err := scanLiveEvent(r.db.QueryRow(ctx, query, liveEventID, attendeeID))
	if err != nil {
		if !errors.Is(err, apperrors.ErrEventNotFound) {
			r.log.Error("Failed to remove live attendee", "error", err, "live_event_id", liveEventID)
		}
		return nil, err
	}

	return event, nil
}
