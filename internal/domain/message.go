package domain

import "encoding/json"

// Типы сообщений в envelope {type, payload}
const (
	MessageInitAttendee         = "init-attendee"
	MessageRaiseHand            = "raise-hand"
	MessageUpdateHandRaise      = "update-hand-raise"
	MessageJoinMeeting          = "join-meeting"
	MessageTransferMeeting      = "transfer-meeting"
	MessageAttendeeProgress     = "attendee-progress"
	MessageAttendeeDisconnected = "attendee-disconnected"
	MessageLiveVideoFeeds       = "live-video-feeds"
	MessagePing                 = "ping"
)

// Message - envelope для всех сообщений WebSocket-канала. Payload остается
// сырым JSON: роутер разбирает только те поля, которые ему нужны для
// авторизации и маршрутизации, остальное пересылается как есть.
type Message struct {
	Type        string          `json:"type"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	TimestampMs int64           `json:"timestampMs,omitempty"`
}

// RoutedPayload - общие поля payload, интересные роутеру
type RoutedPayload struct {
	TargetAttendeeID    string `json:"targetAttendeeId"`
	LiveEventAttendeeID string `json:"liveEventAttendeeId"`
	AttendeeID          string `json:"attendeeId"`
	MeetingID           string `json:"meetingId"`
	Name                string `json:"name"`
	Message             string `json:"message"`
	Queue               bool   `json:"queue"`
	AccessKey           string `json:"accessKey,omitempty"`
}

type HandRaisePayload struct {
	LiveEventID string `json:"liveEventId"`
	AttendeeID  string `json:"attendeeId"`
	HandRaised  bool   `json:"handRaised"`
	Name        string `json:"name"`
	Message     string `json:"message,omitempty"`
	QueueID     string `json:"queueId,omitempty"`
}

type DisconnectPayload struct {
	AttendeeID  string `json:"attendeeId"`
	LiveEventID string `json:"liveEventId"`
	HandRaised  bool   `json:"handRaised"`
}

type PongMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
