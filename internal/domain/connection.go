package domain

import "fmt"

// RoomKey идентифицирует комнату сигналинга: либо live-событие (hand-raise),
// либо конкретный видеомитинг
type RoomKey struct {
	Kind string
	ID   string
}

const (
	RoomKindEvent   = "event"
	RoomKindMeeting = "meeting"
)

func EventRoom(liveEventID string) RoomKey {
	return RoomKey{Kind: RoomKindEvent, ID: liveEventID}
}

func MeetingRoom(meetingID string) RoomKey {
	return RoomKey{Kind: RoomKindMeeting, ID: meetingID}
}

func (k RoomKey) String() string {
	return fmt.Sprintf("%s:%s", k.Kind, k.ID)
}

// Connection - запись присутствия: одно активное соединение на пару
// (комната, участник), новое затирает старое
type Connection struct {
	Room         RoomKey `json:"-"`
	AttendeeID   string  `json:"AttendeeId"`
	ConnectionID string  `json:"ConnectionId"`
}
