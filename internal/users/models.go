package users

import "time"

// User is the per-number business configuration consumed by the voice agent
// and the prompt tooling. The router itself never reads it.
type User struct {
	UserID      string `json:"user_id" db:"user_id"`
	PhoneNumber string `json:"twilio_phone_number" db:"twilio_phone_number"`

	BusinessName string            `json:"business_name" db:"business_name"`
	Industry     string            `json:"industry" db:"industry"`
	ServiceTypes []string          `json:"service_types" db:"service_types"`
	BusinessQA   map[string]string `json:"business_qa" db:"business_qa"`

	// CallbackWindow is free text such as "soon" or "within 2 hours".
	CallbackWindow string `json:"callback_window" db:"callback_window"`

	NotificationPhone *string `json:"notification_phone" db:"notification_phone"`
	NotificationEmail *string `json:"notification_email" db:"notification_email"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// UpdateRequest carries the editable fields. Nil slices/maps and empty strings
// are normalized by Service.Update.
type UpdateRequest struct {
	BusinessName      string            `json:"business_name"`
	Industry          string            `json:"industry"`
	ServiceTypes      []string          `json:"service_types"`
	BusinessQA        map[string]string `json:"business_qa"`
	CallbackWindow    string            `json:"callback_window"`
	NotificationPhone string            `json:"notification_phone"`
	NotificationEmail string            `json:"notification_email"`
}

// DefaultCallbackWindow is stored when an update leaves the window empty.
const DefaultCallbackWindow = "soon"

// Fields is the normalized form written by repositories.
type Fields struct {
	BusinessName      string
	Industry          string
	ServiceTypes      []string
	BusinessQA        map[string]string
	CallbackWindow    string
	NotificationPhone *string
	NotificationEmail *string
}

func (f Fields) apply(u *User, now time.Time) {
	u.BusinessName = f.BusinessName
	u.Industry = f.Industry
	u.ServiceTypes = f.ServiceTypes
	u.BusinessQA = f.BusinessQA
	u.CallbackWindow = f.CallbackWindow
	u.NotificationPhone = f.NotificationPhone
	u.NotificationEmail = f.NotificationEmail
	u.UpdatedAt = now
}
