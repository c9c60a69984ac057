package domain

import "time"

type LiveEvent struct {
	LiveEventID      string   `json:"LiveEventId"`
	ModeratorIDs     []string `json:"moderatorIds"`
	LiveAttendeeIDs  []string `json:"liveAttendeeIds"`
	TalentMeetingID  string   `json:"talentMeetingId"`
	TalentAttendeeID string   `json:"talentAttendeeIdForTalentMeeting"`
}

// HandRaise - запись о поднятой руке. QueueID пуст, пока модератор не поставил
// участника в очередь; при постановке туда записывается attendeeId модератора.
type HandRaise struct {
	LiveEventID string    `json:"LiveEventId"`
	AttendeeID  string    `json:"AttendeeId"`
	Question    string    `json:"Question"`
	Name        string    `json:"Name"`
	QueueID     string    `json:"QueueId"`
	UpdatedAt   time.Time `json:"UpdatedAt"`
}

func (h *HandRaise) IsQueued() bool {
	return h.QueueID != ""
}
