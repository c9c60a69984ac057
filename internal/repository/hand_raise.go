package repository

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"live_event_platform/internal/domain"
	apperrors "live_event_platform/pkg/errors"
	"live_event_platform/pkg/logger"
)

const (
	handRaiseOrderPrefix  = "handraise:order:%s"
	handRaiseRecordPrefix = "handraise:rec:%s:%s"
)

// Поля hash-записи. Каждая операция пишет только свои поля: Upsert не трогает
// queue_id, SetQueue не трогает question/name, так что конкурирующие операции
// не затирают чужие изменения.
const (
	fieldQuestion  = "question"
	fieldName      = "name"
	fieldQueueID   = "queue_id"
	fieldUpdatedAt = "updated_at"
)

type HandRaiseRepository interface {
	// Upsert сохраняет поднятую руку. Повторный raise обновляет вопрос, имя и
	// UpdatedAt, но не меняет ни позицию в очереди, ни назначение очереди.
	Upsert(ctx context.Context, raise *domain.HandRaise) (*domain.HandRaise, error)
	// SetQueue ставит или снимает участника из очереди модератора
	SetQueue(ctx context.Context, liveEventID, attendeeID, queueID string) (*domain.HandRaise, error)
	Get(ctx context.Context, liveEventID, attendeeID string) (*domain.HandRaise, error)
	// ListByEvent возвращает записи в FIFO-порядке первого поднятия руки
	ListByEvent(ctx context.Context, liveEventID string) ([]*domain.HandRaise, error)
	Delete(ctx context.Context, liveEventID, attendeeID string) error
}

type handRaiseRepository struct {
	rdb *redis.Client
	log logger.Logger
}

func NewHandRaiseRepository(rdb *redis.Client, log logger.Logger) HandRaiseRepository {
	return &handRaiseRepository{rdb: rdb, log: log}
}

func handRaiseOrderKey(liveEventID string) string {
	return fmt.Sprintf(handRaiseOrderPrefix, liveEventID)
}

func handRaiseRecordKey(liveEventID, attendeeID string) string {
	return fmt.Sprintf(handRaiseRecordPrefix, liveEventID, attendeeID)
}

func (r *handRaiseRepository) Upsert(ctx context.Context, raise *domain.HandRaise) (*domain.HandRaise, error) {
	now := time.Now()

	// NX: score выставляется только при первом поднятии, повтор не двигает
	// участника в порядке очереди
	err := r.rdb.ZAddNX(ctx, handRaiseOrderKey(raise.LiveEventID), redis.Z{
		Score:  float64(now.UnixMilli()),
		Member: raise.AttendeeID,
	}).Err()
	if err != nil {
		r.log.Error("Failed to record hand raise order", "error", err, "attendee_id", raise.AttendeeID)
		return nil, fmt.Errorf("failed to record hand raise order: %w", err)
	}

	// Пишем только поля повтора; queue_id принадлежит SetQueue
	err = r.rdb.HSet(ctx, handRaiseRecordKey(raise.LiveEventID, raise.AttendeeID),
		fieldQuestion, raise.Question,
		fieldName, raise.Name,
		fieldUpdatedAt, now.UnixMilli(),
	).Err()
	if err != nil {
		r.log.Error("Failed to store hand raise", "error", err, "attendee_id", raise.AttendeeID)
		return nil, fmt.Errorf("failed to store hand raise: %w", err)
	}

	return r.Get(ctx, raise.LiveEventID, raise.AttendeeID)
}

func (r *handRaiseRepository) SetQueue(ctx context.Context, liveEventID, attendeeID, queueID string) (*domain.HandRaise, error) {
	key := handRaiseRecordKey(liveEventID, attendeeID)

	exists, err := r.rdb.Exists(ctx, key).Result()
	if err != nil {
		r.log.Error("Failed to check hand raise", "error", err, "attendee_id", attendeeID)
		return nil, err
	}
	if exists == 0 {
		return nil, apperrors.ErrNotFound
	}

	err = r.rdb.HSet(ctx, key,
		fieldQueueID, queueID,
		fieldUpdatedAt, time.Now().UnixMilli(),
	).Err()
	if err != nil {
		r.log.Error("Failed to update hand raise queue", "error", err, "attendee_id", attendeeID)
		return nil, err
	}

	return r.Get(ctx, liveEventID, attendeeID)
}

func (r *handRaiseRepository) Get(ctx context.Context, liveEventID, attendeeID string) (*domain.HandRaise, error) {
	fields, err := r.rdb.HGetAll(ctx, handRaiseRecordKey(liveEventID, attendeeID)).Result()
	if err != nil {
		r.log.Error("Failed to get hand raise", "error", err, "attendee_id", attendeeID)
		return nil, err
	}
	if len(fields) == 0 {
		return nil, apperrors.ErrNotFound
	}

	raise := &domain.HandRaise{
		LiveEventID: liveEventID,
		AttendeeID:  attendeeID,
		Question:    fields[fieldQuestion],
		Name:        fields[fieldName],
		QueueID:     fields[fieldQueueID],
	}
	if ms, err := strconv.ParseInt(fields[fieldUpdatedAt], 10, 64); err == nil {
		raise.UpdatedAt = time.UnixMilli(ms)
	}

	return raise, nil
}

func (r *handRaiseRepository) ListByEvent(ctx context.Context, liveEventID string) ([]*domain.HandRaise, error) {
	attendeeIDs, err := r.rdb.ZRange(ctx, handRaiseOrderKey(liveEventID), 0, -1).Result()
	if err != nil {
		if err == redis.Nil {
			return []*domain.HandRaise{}, nil
		}
		r.log.Error("Failed to list hand raises", "error", err, "live_event_id", liveEventID)
		return nil, err
	}

	raises := make([]*domain.HandRaise, 0, len(attendeeIDs))
	for _, attendeeID := range attendeeIDs {
		raise, err := r.Get(ctx, liveEventID, attendeeID)
		if err != nil {
			if err == apperrors.ErrNotFound {
				continue
			}
			return nil, err
		}
		raises = append(raises, raise)
	}

	return raises, nil
}

func (r *handRaiseRepository) Delete(ctx context.Context, liveEventID, attendeeID string) error {
	if err := r.rdb.ZRem(ctx, handRaiseOrderKey(liveEventID), attendeeID).Err(); err != nil {
		r.log.Error("Failed to remove hand raise order entry", "error", err, "attendee_id", attendeeID)
		return err
	}

	if err := r.rdb.Del(ctx, handRaiseRecordKey(liveEventID, attendeeID)).Err(); err != nil {
		r.log.Error("Failed to delete hand raise", "error", err, "attendee_id", attendeeID)
		return err
	}

	return nil
}
