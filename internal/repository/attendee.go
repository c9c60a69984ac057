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

type AttendeeRepository interface {
	Save(ctx context.Context, attendee *domain.Attendee) error
	GetByID(ctx context.Context, attendeeID string) (*domain.Attendee, error)
	SetUsedAccessKey(ctx context.Context, attendeeID, accessKey string) error
	SetVetted(ctx context.Context, attendeeID string, vetted bool) (*domain.Attendee, error)
}

type attendeeRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewAttendeeRepository(db *pgxpool.Pool, log logger.Logger) AttendeeRepository {
	return &attendeeRepository{db: db, log: log}
}

func (r *attendeeRepository) Save(ctx context.Context, attendee *domain.Attendee) error {
	query := `
		INSERT INTO live_event_attendees (attendee_id, live_event_id, attendee_type, full_name,
		                                  assigned_access_key, used_access_key, is_vetted)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (attendee_id) DO UPDATE SET
			attendee_type = EXCLUDED.attendee_type,
			full_name = EXCLUDED.full_name,
			assigned_access_key = EXCLUDED.assigned_access_key
	`

	_, err := r.db.Exec(ctx, query,
		attendee.AttendeeID, attendee.LiveEventID, attendee.Role, attendee.FullName,
		attendee.AssignedAccessKey, attendee.UsedAccessKey, attendee.IsVetted,
	)
	if err != nil {
		r.log.Error("Failed to save attendee", "error", err, "attendee_id", attendee.AttendeeID)
		return err
	}

	return nil
}

func (r *attendeeRepository) GetByID(ctx context.Context, attendeeID string) (*domain.Attendee, error) {
	query := `
		SELECT attendee_id, live_event_id, attendee_type, full_name,
		       assigned_access_key, used_access_key, is_vetted
		FROM live_event_attendees
		WHERE attendee_id = $1
	`

	attendee := &domain.Attendee{}
	err := r.db.QueryRow(ctx, query, attendeeID).Scan(
		&attendee.AttendeeID, &attendee.LiveEventID, &attendee.Role, &attendee.FullName,
		&attendee.AssignedAccessKey, &attendee.UsedAccessKey, &attendee.IsVetted,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrAttendeeNotFound
		}
		r.log.Error("Failed to get attendee", "error", err, "attendee_id", attendeeID)
		return nil, err
	}

	return attendee, nil
}

func (r *attendeeRepository) SetUsedAccessKey(ctx context.Context, attendeeID, accessKey string) error {
	query := `UPDATE live_event_attendees SET used_access_key = $2 WHERE attendee_id = $1`

	tag, err := r.db.Exec(ctx, query, attendeeID, accessKey)
	if err != nil {
		r.log.Error("Failed to update used access key", "error", err, "attendee_id", attendeeID)
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrAttendeeNotFound
	}

	return nil
}

func (r *attendeeRepository) SetVetted(ctx context.Context, attendeeID string, vetted bool) (*domain.Attendee, error) {
	query := `
		UPDATE live_event_attendees SET is_vetted = $2
		WHERE attendee_id = $1
		RETURNING attendee_id, live_event_id, attendee_type, full_name,
		          assigned_access_key, used_access_key, is_vetted
	`

	attendee := &domain.Attendee{}
	err := r.db.QueryRow(ctx, query, attendeeID, vetted).Scan(
		&attendee.AttendeeID, &attendee.LiveEventID, &attendee.Role, &attendee.FullName,
		&attendee.AssignedAccessKey, &attendee.UsedAccessKey, &attendee.IsVetted,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrAttendeeNotFound
		}
		r.log.Error("Failed to set vetted flag", "error", err, "attendee_id", attendeeID)
		return nil, err
	}

	return attendee, nil
}
