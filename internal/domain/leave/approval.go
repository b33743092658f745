package leave

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"hradmin/internal/domain/core"
	"hradmin/internal/domain/notifications"
)

const (
	OperationApprove = "approve"
	OperationReject  = "reject"
	OperationRemind  = "remind"

	requestNoun       = "leave request(s)"
	retryLaterMessage = "could not be processed, please try again later"
)

// Approve and Reject only act on requests of eligible employees inside companyScope;
// anything else reports not found.
func (s *Service) Approve(ctx context.Context, actorEmpID string, companyScope, ids []string) (BatchResult, error) {
	return s.decide(ctx, actorEmpID, companyScope, ids, ActionApprove)
}

func (s *Service) Reject(ctx context.Context, actorEmpID string, companyScope, ids []string) (BatchResult, error) {
	return s.decide(ctx, actorEmpID, companyScope, ids, ActionReject)
}

func (s *Service) decide(ctx context.Context, actorEmpID string, companyScope, ids []string, action Action) (BatchResult, error) {
	operation, verb, kind := OperationApprove, "approved", notifications.KindLeaveApprove
	if action == ActionReject {
		operation, verb, kind = OperationReject, "rejected", notifications.KindLeaveReject
	}
	if err := requireBatch("requestIds", ids); err != nil {
		return BatchResult{Operation: operation}, err
	}
	visible, err := s.visibleEmployees(ctx, companyScope)
	if err != nil {
		return BatchResult{Operation: operation}, err
	}

	actorName := s.employeeName(ctx, actorEmpID)
	return foldBatch(operation, requestNoun, verb, distinct(ids), func(id string) Outcome {
		req, err := s.scopedRequest(ctx, visible, id)
		if err != nil {
			return s.lookupFailure(id, operation, err)
		}

		status, cancel, err := Transition(req.Status, req.CancelStatus, action)
		if err != nil {
			if errors.Is(err, ErrAlreadyApproved) || errors.Is(err, ErrAlreadyRejected) {
				return warning(id, fmt.Sprintf("leave request %s", err))
			}
			return warning(id, err.Error())
		}

		now := s.now()
		from := StatusChange{Status: req.Status, Cancel: req.CancelStatus}
		to := StatusChange{Status: status, Cancel: cancel, ActionBy: actorEmpID, At: now}
		updated, err := s.Store.UpdateRequestStatus(ctx, id, from, to)
		if err != nil {
			slog.Error("leave request status update failed", "requestId", id, "operation", operation, "err", err)
			return failure(id, "leave request "+retryLaterMessage)
		}
		if !updated {
			return warning(id, fmt.Sprintf("%s: leave request changed by another user", ErrInvalidTransition))
		}

		req.Status, req.CancelStatus, req.ActionBy, req.UpdatedAt = status, cancel, actorEmpID, now
		outcome := success(id, "leave request "+verb)
		s.dispatchDecision(ctx, &outcome, req, kind, actorEmpID, actorName)
		return outcome
	}), nil
}

// dispatchDecision notifies the applicant in-app and by email and sends one notice to the
// CC list. Failures only add warnings; the transition stands.
func (s *Service) dispatchDecision(ctx context.Context, outcome *Outcome, req LeaveRequest, kind, actorEmpID, actorName string) {
	if err := s.Notifier.Notify(ctx, notifications.Notification{
		EmpID:     actorEmpID,
		Kind:      kind,
		LeaveType: req.LeaveType,
		Assignee:  req.EmpID,
	}); err != nil {
		slog.Warn("leave notification insert failed", "requestId", req.ID, "err", err)
		outcome.warn("in-app notification could not be saved")
	}

	applicant, err := s.Directory.GetEmployee(ctx, req.EmpID)
	if err != nil {
		slog.Warn("leave applicant lookup failed", "requestId", req.ID, "empId", req.EmpID, "err", err)
		outcome.warn("applicant email not sent: employee not found")
		return
	}
	mail := notifications.LeaveMail{
		EmployeeName: applicant.FullName(),
		LeaveType:    req.LeaveType,
		FromDate:     req.FromDate,
		ToDate:       req.ToDate,
		ActorName:    actorName,
	}

	if validEmail(applicant.Email) {
		subject, body := notifications.LeaveDecision(kind, mail)
		if err := s.Notifier.Email(ctx, []string{applicant.Email}, nil, subject, body); err != nil {
			slog.Warn("leave decision email failed", "requestId", req.ID, "err", err)
			outcome.warn("applicant email could not be sent")
		}
	} else {
		outcome.warn(fmt.Sprintf("applicant email skipped: invalid address %q", applicant.Email))
	}

	cc := s.ccAddresses(req.CCTo)
	if len(cc) == 0 {
		return
	}
	subject, body := notifications.LeaveCC(kind, mail)
	if err := s.Notifier.Email(ctx, nil, cc, subject, body); err != nil {
		slog.Warn("leave cc email failed", "requestId", req.ID, "err", err)
		outcome.warn("cc email could not be sent")
	}
}

// ccAddresses returns the first CCLimit well-formed addresses of the CC list.
func (s *Service) ccAddresses(recipients []Recipient) []string {
	limit := s.CCLimit
	if limit <= 0 {
		limit = DefaultCCLimit
	}
	out := make([]string, 0, limit)
	for _, r := range recipients {
		if len(out) == limit {
			break
		}
		if addr := strings.TrimSpace(r.Email); validEmail(addr) {
			out = append(out, addr)
		}
	}
	return out
}

// SendReminders emails every approver of each request. Malformed addresses are skipped
// and reported; the request status never changes.
func (s *Service) SendReminders(ctx context.Context, companyScope, ids []string) (BatchResult, error) {
	if err := requireBatch("requestIds", ids); err != nil {
		return BatchResult{Operation: OperationRemind}, err
	}
	visible, err := s.visibleEmployees(ctx, companyScope)
	if err != nil {
		return BatchResult{Operation: OperationRemind}, err
	}

	return foldBatch(OperationRemind, requestNoun, "reminded", distinct(ids), func(id string) Outcome {
		req, err := s.scopedRequest(ctx, visible, id)
		if err != nil {
			return s.lookupFailure(id, OperationRemind, err)
		}

		var valid []Recipient
		var skipped []string
		for _, r := range req.ApplyingTo {
			r.Email = strings.TrimSpace(r.Email)
			if validEmail(r.Email) {
				valid = append(valid, r)
			} else {
				skipped = append(skipped, r.Email)
			}
		}
		if len(valid) == 0 {
			o := warning(id, fmt.Sprintf("%s for leave request", ErrNoRecipients))
			for _, addr := range skipped {
				o.Warnings = append(o.Warnings, fmt.Sprintf("skipped malformed address %q", addr))
			}
			return o
		}

		mail := notifications.LeaveMail{
			EmployeeName: s.employeeName(ctx, req.EmpID),
			LeaveType:    req.LeaveType,
			FromDate:     req.FromDate,
			ToDate:       req.ToDate,
		}
		sent := 0
		outcome := success(id, "")
		for _, r := range valid {
			subject, body := notifications.LeaveReminder(r.Name, mail)
			if err := s.Notifier.Email(ctx, []string{r.Email}, nil, subject, body); err != nil {
				slog.Warn("leave reminder email failed", "requestId", id, "recipient", r.Email, "err", err)
				outcome.warn(fmt.Sprintf("reminder to %s could not be sent", r.Email))
				continue
			}
			sent++
		}
		for _, addr := range skipped {
			outcome.warn(fmt.Sprintf("skipped malformed address %q", addr))
		}
		outcome.Message = fmt.Sprintf("reminder sent to %d approver(s)", sent)
		return outcome
	}), nil
}

// PendingQueue lists the requests awaiting action that have aged past the SLA, newest first.
func (s *Service) PendingQueue(ctx context.Context, companyScope []string, now time.Time) ([]PendingItem, error) {
	empIDs, err := s.SelectEligibleEmployees(ctx, companyScope)
	if err != nil {
		return nil, fmt.Errorf("select eligible employees: %w", err)
	}
	if len(empIDs) == 0 {
		return nil, nil
	}
	sla := s.PendingSLAWorkingDays
	if sla < 0 {
		sla = 0
	}
	requests, err := s.Store.PendingRequests(ctx, empIDs, SubtractWorkingDays(now, sla))
	if err != nil {
		return nil, fmt.Errorf("load pending requests: %w", err)
	}

	ids := make([]string, 0, len(requests))
	for _, r := range requests {
		ids = append(ids, r.EmpID)
	}
	employees, err := s.Directory.EmployeesByIDs(ctx, distinct(ids))
	if err != nil {
		return nil, fmt.Errorf("load employees: %w", err)
	}
	var managerIDs []string
	for _, emp := range employees {
		if emp.ManagerID != "" {
			managerIDs = append(managerIDs, emp.ManagerID)
		}
	}
	managers, err := s.Directory.EmployeesByIDs(ctx, distinct(managerIDs))
	if err != nil {
		return nil, fmt.Errorf("load managers: %w", err)
	}

	out := make([]PendingItem, 0, len(requests))
	for _, r := range requests {
		if !r.AwaitingAction() {
			continue
		}
		emp := employees[r.EmpID]
		item := PendingItem{Request: r, Employee: contactOf(emp, r.EmpID)}
		if m, ok := managers[emp.ManagerID]; ok {
			c := m.Contact()
			item.Manager = &c
		}
		out = append(out, item)
	}
	return out, nil
}

func contactOf(emp core.Employee, empID string) core.Contact {
	if emp.EmpID == "" {
		return core.Contact{EmpID: empID}
	}
	return emp.Contact()
}

func (s *Service) visibleEmployees(ctx context.Context, companyScope []string) (map[string]struct{}, error) {
	empIDs, err := s.SelectEligibleEmployees(ctx, companyScope)
	if err != nil {
		return nil, fmt.Errorf("select eligible employees: %w", err)
	}
	visible := make(map[string]struct{}, len(empIDs))
	for _, id := range empIDs {
		visible[id] = struct{}{}
	}
	return visible, nil
}

// scopedRequest loads a request and hides it when its employee is not in visible.
func (s *Service) scopedRequest(ctx context.Context, visible map[string]struct{}, id string) (LeaveRequest, error) {
	req, err := s.Store.GetRequest(ctx, id)
	if err != nil {
		return LeaveRequest{}, err
	}
	if _, ok := visible[req.EmpID]; !ok {
		return LeaveRequest{}, fmt.Errorf("%w: %s", ErrRequestNotFound, id)
	}
	return req, nil
}

func (s *Service) lookupFailure(id, operation string, err error) Outcome {
	if errors.Is(err, ErrRequestNotFound) {
		return warning(id, ErrRequestNotFound.Error())
	}
	slog.Error("leave request lookup failed", "requestId", id, "operation", operation, "err", err)
	return failure(id, "leave request "+retryLaterMessage)
}

func (s *Service) employeeName(ctx context.Context, empID string) string {
	if empID == "" {
		return ""
	}
	emp, err := s.Directory.GetEmployee(ctx, empID)
	if err != nil {
		return ""
	}
	return emp.FullName()
}

func requireBatch(field string, ids []string) error {
	if len(distinct(ids)) > 0 {
		return nil
	}
	v := &validation{}
	v.add(field, "select at least one item", ErrEmptyBatch)
	return v.err()
}
