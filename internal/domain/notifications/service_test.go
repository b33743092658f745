package notifications

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	created []Notification
}

func (m *memoryStore) CreateNotification(_ context.Context, n Notification) error {
	m.created = append(m.created, n)
	return nil
}

func (m *memoryStore) ListNotifications(_ context.Context, assignee string, _, _ int) ([]Notification, error) {
	var out []Notification
	for _, n := range m.created {
		if n.Assignee == assignee {
			out = append(out, n)
		}
	}
	return out, nil
}

func (m *memoryStore) CountNotifications(ctx context.Context, assignee string) (int, error) {
	list, _ := m.ListNotifications(ctx, assignee, 0, 0)
	return len(list), nil
}

func (m *memoryStore) MarkRead(_ context.Context, _, _ string) (bool, error) {
	return true, nil
}

type recordingMailer struct {
	sent []Message
	err  error
}

func (r *recordingMailer) Send(_ context.Context, msg Message) error {
	r.sent = append(r.sent, msg)
	return r.err
}

func TestNotifyStoresRecord(t *testing.T) {
	store := &memoryStore{}
	svc := New(store, nil, "")
	require.NoError(t, svc.Notify(context.Background(), Notification{EmpID: "HR1", Kind: KindLeaveApprove, LeaveType: "Sick Leave", Assignee: "E1"}))

	count, err := svc.Count(context.Background(), "E1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, "no-reply@example.com", svc.DefaultFrom)
}

func TestEmailDropsBlankAddresses(t *testing.T) {
	mailer := &recordingMailer{}
	svc := New(&memoryStore{}, mailer, "hr@example.com")

	err := svc.Email(context.Background(), []string{" a@example.com ", ""}, []string{"  "}, "subj", "body")
	require.NoError(t, err)
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, []string{"a@example.com"}, mailer.sent[0].To)
	assert.Empty(t, mailer.sent[0].Cc)
	assert.Equal(t, "hr@example.com", mailer.sent[0].From)
}

func TestEmailWithoutRecipients(t *testing.T) {
	svc := New(&memoryStore{}, &recordingMailer{}, "")
	err := svc.Email(context.Background(), nil, []string{""}, "subj", "body")
	assert.ErrorIs(t, err, ErrNoRecipients)
}

func TestEmailPropagatesMailerError(t *testing.T) {
	boom := errors.New("smtp down")
	svc := New(&memoryStore{}, &recordingMailer{err: boom}, "")
	err := svc.Email(context.Background(), []string{"a@example.com"}, nil, "subj", "body")
	assert.ErrorIs(t, err, boom)
}

func TestLeaveTemplates(t *testing.T) {
	m := LeaveMail{
		EmployeeName: "Asha Rao",
		LeaveType:    "Casual Leave",
		FromDate:     time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC),
		ToDate:       time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC),
		ActorName:    "Priya",
	}

	subject, body := LeaveDecision(KindLeaveReject, m)
	assert.Equal(t, "Casual Leave request rejected", subject)
	assert.True(t, strings.Contains(body, "03 Mar 2025 to 04 Mar 2025"))
	assert.True(t, strings.Contains(body, "by Priya"))

	subject, _ = LeaveCC(KindLeaveApprove, m)
	assert.Equal(t, "Casual Leave of Asha Rao approved", subject)

	subject, body = LeaveReminder("Ravi", m)
	assert.True(t, strings.HasPrefix(subject, "Reminder:"))
	assert.True(t, strings.HasPrefix(body, "Dear Ravi,"))
}

func TestLeaveDecisionWithoutActor(t *testing.T) {
	m := LeaveMail{
		EmployeeName: "Asha Rao",
		LeaveType:    "Sick Leave",
		FromDate:     time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC),
		ToDate:       time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC),
	}

	subject, body := LeaveDecision(KindLeaveApprove, m)
	assert.Equal(t, "Sick Leave request approved", subject)
	assert.Equal(t, "Dear Asha Rao,\n\nYour Sick Leave request for 06 Jan 2025 to 06 Jan 2025 has been approved.\n\nRegards,\nHR Team\n", body)
	assert.NotContains(t, body, " by ")
}

func TestMessageRecipients(t *testing.T) {
	msg := Message{To: []string{"a@x.io"}, Cc: []string{"b@x.io", "c@x.io"}}
	assert.Equal(t, []string{"a@x.io", "b@x.io", "c@x.io"}, msg.Recipients())
}
