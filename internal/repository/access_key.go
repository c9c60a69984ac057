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

type AccessKeyRepository interface {
	Create(ctx context.Context, key *domain.AccessKey) error
	GetByKey(ctx context.Context, key string) (*domain.AccessKey, error)
	// Consume атомарно инкрементирует счетчик использований; возвращает
	// ErrAccessKeyExhausted, если лимит уже исчерпан
	Consume(ctx context.Context, key string) (*domain.AccessKey, error)
}

type accessKeyRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewAccessKeyRepository(db *pgxpool.Pool, log logger.Logger) AccessKeyRepository {
	return &accessKeyRepository{db: db, log: log}
}

func (r *accessKeyRepository) Create(ctx context.Context, key *domain.AccessKey) error {
	query := `
		INSERT INTO access_keys (access_key, key_type, live_event_id, used_count, usage_limit)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.Exec(ctx, query,
		key.Key, key.KeyType, key.LiveEventID, key.UsedCount, key.UsageLimit,
	)
	if err != nil {
		// Коллизия ключа при достаточной энтропии невозможна; если случилась -
		// это жесткая ошибка, без retry
		r.log.Error("Failed to create access key", "error", err)
		return err
	}

	return nil
}

func (r *accessKeyRepository) GetByKey(ctx context.Context, key string) (*domain.AccessKey, error) {
	query := `
		SELECT access_key, key_type, live_event_id, used_count, usage_limit
		FROM access_keys
		WHERE access_key = $1
	`

	ak := &domain.AccessKey{}
	err := r.db.QueryRow(ctx, query, key).Scan(
		&ak.Key, &ak.KeyType, &ak.LiveEventID, &ak.UsedCount, &ak.UsageLimit,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		r.log.Error("Failed to get access key", "error", err)
		return nil, err
	}

	return ak, nil
}

func (r *accessKeyRepository) Consume(ctx context.Context, key string) (*domain.AccessKey, error) {
	// Условный инкремент: при конкурентных вызовах счетчик не может
	// проскочить лимит
	query := `
		UPDATE access_keys
		SET used_count = used_count + 1
		WHERE access_key = $1 AND used_count < usage_limit
		RETURNING access_key, key_type, live_event_id, used_count, usage_limit
	`

	ak := &domain.AccessKey{}
	err := r.db.QueryRow(ctx, query, key).Scan(
		&ak.Key, &ak.KeyType, &ak.LiveEventID, &ak.UsedCount, &ak.UsageLimit,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Либо ключа нет, либо лимит исчерпан - различаем отдельным чтением
			if _, getErr := r.GetByKey(ctx, key); getErr == nil {
				return nil, apperrors.ErrAccessKeyExhausted
			}
			return nil, apperrors.ErrNotFound
		}
		r.log.Error("Failed to consume access key", "error", err)
		return nil, err
	}

	return ak, nil
}
