package repository

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"live_event_platform/pkg/logger"
)

type Repositories struct {
	AccessKey  AccessKeyRepository
	Attendee   AttendeeRepository
	LiveEvent  LiveEventRepository
	Connection ConnectionRepository
	HandRaise  HandRaiseRepository
	RateLimit  RateLimitRepository
}

func NewRepositories(db *pgxpool.Pool, rdb *redis.Client, log logger.Logger) *Repositories {
	return &Repositories{
		AccessKey:  NewAccessKeyRepository(db, log),
		Attendee:   NewAttendeeRepository(db, log),
		LiveEvent:  NewLiveEventRepository(db, log),
		Connection: NewConnectionRepository(rdb, log),
		HandRaise:  NewHandRaiseRepository(rdb, log),
		RateLimit:  NewRateLimitRepository(rdb, log),
	}
}
