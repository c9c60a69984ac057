package domain

// Role - тип участника live-события
type Role string

const (
	RoleModerator Role = "MODERATOR"
	RoleTalent    Role = "TALENT"
	RoleAttendee  Role = "ATTENDEE"
)

func (r Role) Valid() bool {
	switch r {
	case RoleModerator, RoleTalent, RoleAttendee:
		return true
	}
	return false
}

type Attendee struct {
	AttendeeID        string `json:"AttendeeId"`
	LiveEventID       string `json:"LiveEventId"`
	Role              Role   `json:"AttendeeType"`
	FullName          string `json:"FullName"`
	AssignedAccessKey string `json:"AssignedAccessKey,omitempty"`
	UsedAccessKey     string `json:"usedAccessKey,omitempty"`
	IsVetted          bool   `json:"isVetted"`
}

// AuthContext - результат успешной проверки токена; единственный источник
// идентичности для всех привилегированных операций
type AuthContext struct {
	LiveEventID string
	AttendeeID  string
	Role        Role
	IsModerator bool
	IsVetted    bool
}
