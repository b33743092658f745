package notifications

import (
	"context"
	"errors"
	"strings"
)

var ErrNoRecipients = errors.New("no email recipients")

type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

type Service struct {
	store       StoreAPI
	Mailer      Mailer
	DefaultFrom string
}

func New(store StoreAPI, mailer Mailer, from string) *Service {
	if from == "" {
		from = "no-reply@example.com"
	}
	return &Service{store: store, Mailer: mailer, DefaultFrom: from}
}

// Notify stores an in-app notification.
func (s *Service) Notify(ctx context.Context, n Notification) error {
	return s.store.CreateNotification(ctx, n)
}

// Email sends one message; blank addresses are dropped and an empty recipient list is an error.
func (s *Service) Email(ctx context.Context, to, cc []string, subject, body string) error {
	msg := Message{
		From:    s.DefaultFrom,
		To:      compact(to),
		Cc:      compact(cc),
		Subject: subject,
		Body:    body,
	}
	if len(msg.To) == 0 && len(msg.Cc) == 0 {
		return ErrNoRecipients
	}
	if s.Mailer == nil {
		return nil
	}
	return s.Mailer.Send(ctx, msg)
}

func (s *Service) List(ctx context.Context, assignee string, limit, offset int) ([]Notification, error) {
	return s.store.ListNotifications(ctx, assignee, limit, offset)
}

func (s *Service) Count(ctx context.Context, assignee string) (int, error) {
	return s.store.CountNotifications(ctx, assignee)
}

func (s *Service) MarkRead(ctx context.Context, assignee, notificationID string) (bool, error) {
	return s.store.MarkRead(ctx, assignee, notificationID)
}

func compact(addrs []string) []string {
	out := make([]string, 0, len(addrs))
	for _, addr := range addrs {
		if addr = strings.TrimSpace(addr); addr != "" {
			out = append(out, addr)
		}
	}
	return out
}
