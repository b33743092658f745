package notifications

import "time"

// Notification is an in-app record: EmpID is the acting employee and Assignee the recipient.
type Notification struct {
	ID        string     `json:"id"`
	EmpID     string     `json:"empId"`
	Kind      string     `json:"notificationType"`
	LeaveType string     `json:"leaveType"`
	Assignee  string     `json:"assignee"`
	ReadAt    *time.Time `json:"readAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

type Message struct {
	From    string
	To      []string
	Cc      []string
	Subject string
	Body    string
}

func (m Message) Recipients() []string {
	out := make([]string, 0, len(m.To)+len(m.Cc))
	out = append(out, m.To...)
	return append(out, m.Cc...)
}
