package service

import (
	"context"
	"sync"
	"time"

	"live_event_platform/internal/domain"
	apperrors "live_event_platform/pkg/errors"
	"live_event_platform/pkg/logger"
)

// In-memory реализации репозиториев для тестов сервисного слоя

func testLogger() logger.Logger {
	return logger.New("error")
}

type fakeAccessKeyRepo struct {
	mu   sync.Mutex
	keys map[string]*domain.AccessKey
}

func newFakeAccessKeyRepo() *fakeAccessKeyRepo {
	return &fakeAccessKeyRepo{keys: make(map[string]*domain.AccessKey)}
}

func (r *fakeAccessKeyRepo) Create(ctx context.Context, key *domain.AccessKey) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *key
	r.keys[key.Key] = &copied
	return nil
}

func (r *fakeAccessKeyRepo) GetByKey(ctx context.Context, key string) (*domain.AccessKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.keys[key]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	copied := *stored
	return &copied, nil
}

func (r *fakeAccessKeyRepo) Consume(ctx context.Context, key string) (*domain.AccessKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.keys[key]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	if stored.UsedCount >= stored.UsageLimit {
		return nil, apperrors.ErrAccessKeyExhausted
	}
	stored.UsedCount++
	copied := *stored
	return &copied, nil
}

type fakeAttendeeRepo struct {
	mu        sync.Mutex
	attendees map[string]*domain.Attendee
}

func newFakeAttendeeRepo(attendees ...*domain.Attendee) *fakeAttendeeRepo {
	repo := &fakeAttendeeRepo{attendees: make(map[string]*domain.Attendee)}
	for _, a := range attendees {
		copied := *a
		repo.attendees[a.AttendeeID] = &copied
	}
	return repo
}

func (r *fakeAttendeeRepo) Save(ctx context.Context, attendee *domain.Attendee) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *attendee
	r.attendees[attendee.AttendeeID] = &copied
	return nil
}

func (r *fakeAttendeeRepo) GetByID(ctx context.Context, attendeeID string) (*domain.Attendee, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.attendees[attendeeID]
	if !ok {
		return nil, apperrors.ErrAttendeeNotFound
	}
	copied := *stored
	return &copied, nil
}

func (r *fakeAttendeeRepo) SetUsedAccessKey(ctx context.Context, attendeeID, accessKey string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.attendees[attendeeID]
	if !ok {
		return apperrors.ErrAttendeeNotFound
	}
	stored.UsedAccessKey = accessKey
	return nil
}

func (r *fakeAttendeeRepo) SetVetted(ctx context.Context, attendeeID string, vetted bool) (*domain.Attendee, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.attendees[attendeeID]
	if !ok {
		return nil, apperrors.ErrAttendeeNotFound
	}
	stored.IsVetted = vetted
	copied := *stored
	return &copied, nil
}

type fakeLiveEventRepo struct {
	mu     sync.Mutex
	events map[string]*domain.LiveEvent
}

func newFakeLiveEventRepo(events ...*domain.LiveEvent) *fakeLiveEventRepo {
	repo := &fakeLiveEventRepo{events: make(map[string]*domain.LiveEvent)}
	for _, e := range events {
		copied := *e
		repo.events[e.LiveEventID] = &copied
	}
	return repo
}

func (r *fakeLiveEventRepo) GetByID(ctx context.Context, liveEventID string) (*domain.LiveEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.events[liveEventID]
	if !ok {
		return nil, apperrors.ErrEventNotFound
	}
	copied := *stored
	copied.ModeratorIDs = append([]string(nil), stored.ModeratorIDs...)
	copied.LiveAttendeeIDs = append([]string(nil), stored.LiveAttendeeIDs...)
	return &copied, nil
}

func (r *fakeLiveEventRepo) AddModerator(ctx context.Context, liveEventID, attendeeID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.events[liveEventID]
	if !ok {
		return apperrors.ErrEventNotFound
	}
	for _, id := range stored.ModeratorIDs {
		if id == attendeeID {
			return nil
		}
	}
	stored.ModeratorIDs = append(stored.ModeratorIDs, attendeeID)
	return nil
}

func (r *fakeLiveEventRepo) AddLiveAttendee(ctx context.Context, liveEventID, attendeeID string) (*domain.LiveEvent, error) {
	r.mu.Lock()
	stored, ok := r.events[liveEventID]
	if !ok {
		r.mu.Unlock()
		return nil, apperrors.ErrEventNotFound
	}
	present := false
	for _, id := range stored.LiveAttendeeIDs {
		if id == attendeeID {
			present = true
			break
		}
	}
	if !present {
		stored.LiveAttendeeIDs = append(stored.LiveAttendeeIDs, attendeeID)
	}
	r.mu.Unlock()
	return r.GetByID(ctx, liveEventID)
}

func (r *fakeLiveEventRepo) RemoveLiveAttendee(ctx context.Context, liveEventID, attendeeID string) (*domain.LiveEvent, error) {
	r.mu.Lock()
	stored, ok := r.events[liveEventID]
	if !ok {
		r.mu.Unlock()
		return nil, apperrors.ErrEventNotFound
	}
	remaining := stored.LiveAttendeeIDs[:0]
	for _, id := range stored.LiveAttendeeIDs {
		if id != attendeeID {
			remaining = append(remaining, id)
		}
	}
	stored.LiveAttendeeIDs = remaining
	r.mu.Unlock()
	return r.GetByID(ctx, liveEventID)
}

type fakeConnectionRepo struct {
	mu    sync.Mutex
	conns map[string]map[string]*domain.Connection
}

func newFakeConnectionRepo() *fakeConnectionRepo {
	return &fakeConnectionRepo{conns: make(map[string]map[string]*domain.Connection)}
}

func (r *fakeConnectionRepo) Put(ctx context.Context, conn *domain.Connection) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	room := conn.Room.String()
	if r.conns[room] == nil {
		r.conns[room] = make(map[string]*domain.Connection)
	}
	copied := *conn
	r.conns[room][conn.AttendeeID] = &copied
	return nil
}

func (r *fakeConnectionRepo) Get(ctx context.Context, room domain.RoomKey, attendeeID string) (*domain.Connection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.conns[room.String()][attendeeID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	copied := *stored
	return &copied, nil
}

func (r *fakeConnectionRepo) Delete(ctx context.Context, room domain.RoomKey, attendeeID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.conns[room.String()], attendeeID)
	return nil
}

func (r *fakeConnectionRepo) ListByRoom(ctx context.Context, room domain.RoomKey) ([]*domain.Connection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*domain.Connection
	for _, conn := range r.conns[room.String()] {
		copied := *conn
		result = append(result, &copied)
	}
	return result, nil
}

type fakeHandRaiseRepo struct {
	mu     sync.Mutex
	order  map[string][]string
	raises map[string]map[string]*domain.HandRaise
}

func newFakeHandRaiseRepo() *fakeHandRaiseRepo {
	return &fakeHandRaiseRepo{
		order:  make(map[string][]string),
		raises: make(map[string]map[string]*domain.HandRaise),
	}
}

func (r *fakeHandRaiseRepo) Upsert(ctx context.Context, raise *domain.HandRaise) (*domain.HandRaise, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	event := raise.LiveEventID
	if r.raises[event] == nil {
		r.raises[event] = make(map[string]*domain.HandRaise)
	}

	stored, ok := r.raises[event][raise.AttendeeID]
	if !ok {
		stored = &domain.HandRaise{LiveEventID: event, AttendeeID: raise.AttendeeID}
		r.raises[event][raise.AttendeeID] = stored
		r.order[event] = append(r.order[event], raise.AttendeeID)
	}
	// Повторный raise обновляет только свои поля: ни позиция, ни queue_id
	// не трогаются
	stored.Question = raise.Question
	stored.Name = raise.Name
	stored.UpdatedAt = time.Now()

	copied := *stored
	return &copied, nil
}

func (r *fakeHandRaiseRepo) SetQueue(ctx context.Context, liveEventID, attendeeID, queueID string) (*domain.HandRaise, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.raises[liveEventID][attendeeID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	stored.QueueID = queueID
	stored.UpdatedAt = time.Now()
	copied := *stored
	return &copied, nil
}

func (r *fakeHandRaiseRepo) Get(ctx context.Context, liveEventID, attendeeID string) (*domain.HandRaise, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.raises[liveEventID][attendeeID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	copied := *stored
	return &copied, nil
}

func (r *fakeHandRaiseRepo) ListByEvent(ctx context.Context, liveEventID string) ([]*domain.HandRaise, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*domain.HandRaise
	for _, attendeeID := range r.order[liveEventID] {
		if stored, ok := r.raises[liveEventID][attendeeID]; ok {
			copied := *stored
			result = append(result, &copied)
		}
	}
	return result, nil
}

func (r *fakeHandRaiseRepo) Delete(ctx context.Context, liveEventID, attendeeID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.raises[liveEventID], attendeeID)
	remaining := r.order[liveEventID][:0]
	for _, id := range r.order[liveEventID] {
		if id != attendeeID {
			remaining = append(remaining, id)
		}
	}
	r.order[liveEventID] = remaining
	return nil
}

// captureSender записывает доставки по connectionId; соединения из stale
// отвечают ErrStaleConnection
type captureSender struct {
	mu    sync.Mutex
	sent  map[string][][]byte
	stale map[string]bool
}

func newCaptureSender() *captureSender {
	return &captureSender{
		sent:  make(map[string][][]byte),
		stale: make(map[string]bool),
	}
}

func (s *captureSender) Push(ctx context.Context, connectionID string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stale[connectionID] {
		return apperrors.ErrStaleConnection
	}
	s.sent[connectionID] = append(s.sent[connectionID], append([]byte(nil), data...))
	return nil
}

func (s *captureSender) messages(connectionID string) [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sent[connectionID]
}
