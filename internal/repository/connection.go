package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"live_event_platform/internal/domain"
	apperrors "live_event_platform/pkg/errors"
	"live_event_platform/pkg/logger"
)

const (
	// TTL записи присутствия - сутки; соединение само переживет запись
	// только если транспорт забыл прислать disconnect
	ConnectionTTL = 24 * time.Hour

	connectionKeyPrefix = "conn:%s:%s"
	roomMembersPrefix   = "connroom:%s"
)

type ConnectionRepository interface {
	// Put делает upsert записи присутствия: last-writer-wins для пары
	// (комната, участник)
	Put(ctx context.Context, conn *domain.Connection) error
	Get(ctx context.Context, room domain.RoomKey, attendeeID string) (*domain.Connection, error)
	Delete(ctx context.Context, room domain.RoomKey, attendeeID string) error
	ListByRoom(ctx context.Context, room domain.RoomKey) ([]*domain.Connection, error)
}

type connectionRepository struct {
	rdb *redis.Client
	log logger.Logger
}

func NewConnectionRepository(rdb *redis.Client, log logger.Logger) ConnectionRepository {
	return &connectionRepository{rdb: rdb, log: log}
}

func connectionKey(room domain.RoomKey, attendeeID string) string {
	return fmt.Sprintf(connectionKeyPrefix, room.String(), attendeeID)
}

func roomMembersKey(room domain.RoomKey) string {
	return fmt.Sprintf(roomMembersPrefix, room.String())
}

func (r *connectionRepository) Put(ctx context.Context, conn *domain.Connection) error {
	key := connectionKey(conn.Room, conn.AttendeeID)

	if err := r.rdb.Set(ctx, key, conn.ConnectionID, ConnectionTTL).Err(); err != nil {
		r.log.Error("Failed to store connection", "error", err, "attendee_id", conn.AttendeeID)
		return fmt.Errorf("failed to store connection: %w", err)
	}

	// Членство в комнате для ListByRoom; TTL держим тот же, что у записи
	membersKey := roomMembersKey(conn.Room)
	if err := r.rdb.SAdd(ctx, membersKey, conn.AttendeeID).Err(); err != nil {
		r.log.Error("Failed to add room member", "error", err, "room", conn.Room.String())
		return fmt.Errorf("failed to add room member: %w", err)
	}
	if err := r.rdb.Expire(ctx, membersKey, ConnectionTTL).Err(); err != nil {
		r.log.Warn("Failed to set TTL on room members key", "error", err)
	}

	return nil
}

func (r *connectionRepository) Get(ctx context.Context, room domain.RoomKey, attendeeID string) (*domain.Connection, error) {
	connectionID, err := r.rdb.Get(ctx, connectionKey(room, attendeeID)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, apperrors.ErrNotFound
		}
		r.log.Error("Failed to get connection", "error", err, "attendee_id", attendeeID)
		return nil, err
	}

	return &domain.Connection{
		Room:         room,
		AttendeeID:   attendeeID,
		ConnectionID: connectionID,
	}, nil
}

func (r *connectionRepository) Delete(ctx context.Context, room domain.RoomKey, attendeeID string) error {
	if err := r.rdb.Del(ctx, connectionKey(room, attendeeID)).Err(); err != nil {
		r.log.Error("Failed to delete connection", "error", err, "attendee_id", attendeeID)
		return err
	}

	if err := r.rdb.SRem(ctx, roomMembersKey(room), attendeeID).Err(); err != nil {
		r.log.Warn("Failed to remove room member", "error", err, "room", room.String())
	}

	return nil
}

func (r *connectionRepository) ListByRoom(ctx context.Context, room domain.RoomKey) ([]*domain.Connection, error) {
	attendeeIDs, err := r.rdb.SMembers(ctx, roomMembersKey(room)).Result()
	if err != nil {
		if err == redis.Nil {
			return []*domain.Connection{}, nil
		}
		r.log.Error("Failed to list room members", "error", err, "room", room.String())
		return nil, err
	}

	connections := make([]*domain.Connection, 0, len(attendeeIDs))
	for _, attendeeID := range attendeeIDs {
		conn, err := r.Get(ctx, room, attendeeID)
		if err != nil {
			// Запись могла истечь по TTL, членство подчистим лениво
			if err == apperrors.ErrNotFound {
				_ = r.rdb.SRem(ctx, roomMembersKey(room), attendeeID).Err()
				continue
			}
			return nil, err
		}
		connections = append(connections, conn)
	}

	return connections, nil
}
