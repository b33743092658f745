package reports

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"hradmin/internal/domain/core"
)

type Directory interface {
	ListEmployees(ctx context.Context, scope []string) ([]core.Employee, error)
}

type LeaveCounter interface {
	CountAwaiting(ctx context.Context, empIDs []string) (int, error)
}

type StoreAPI interface {
	PendingResignations(ctx context.Context, scope []string) (int, error)
}

type Service struct {
	Store     StoreAPI
	Directory Directory
	Leave     LeaveCounter
}

func NewService(store StoreAPI, directory Directory, leave LeaveCounter) *Service {
	return &Service{Store: store, Directory: directory, Leave: leave}
}

type LocationCount struct {
	Location string `json:"location"`
	Count    int    `json:"count"`
}

type DashboardStats struct {
	TotalEmployees        int             `json:"totalEmployees"`
	ActiveEmployees       int             `json:"activeEmployees"`
	MaleCount             int             `json:"maleCount"`
	FemaleCount           int             `json:"femaleCount"`
	GenderCounts          map[string]int  `json:"genderCounts"`
	EmployeesByLocation   []LocationCount `json:"employeesByLocation"`
	NewHiresThisYear      int             `json:"newHiresThisYear"`
	NewHireDepartments    int             `json:"newHireDepartments"`
	RecentHires           int             `json:"recentHires"`
	RecentHireDepartments int             `json:"recentHireDepartments"`
	PendingLeaveApprovals int             `json:"pendingLeaveApprovals"`
	PendingHRRequests     int             `json:"pendingHrRequests"`
}

// recentHireWindow is how far back the recent hire counters look.
const recentHireWindow = 30 * 24 * time.Hour

// Dashboard summarizes the employees within scope as of now.
func (s *Service) Dashboard(ctx context.Context, scope []string, now time.Time) (DashboardStats, error) {
	scope = core.NormalizeScope(scope)
	employees, err := s.Directory.ListEmployees(ctx, scope)
	if err != nil {
		return DashboardStats{}, fmt.Errorf("list employees: %w", err)
	}
	d := Summarize(employees, now)

	var eligible []string
	for _, emp := range employees {
		if core.IsEligible(emp.Status) {
			eligible = append(eligible, emp.EmpID)
		}
	}
	if d.PendingLeaveApprovals, err = s.Leave.CountAwaiting(ctx, eligible); err != nil {
		return DashboardStats{}, fmt.Errorf("count pending leave: %w", err)
	}
	if d.PendingHRRequests, err = s.Store.PendingResignations(ctx, scope); err != nil {
		return DashboardStats{}, fmt.Errorf("count pending resignations: %w", err)
	}
	return d, nil
}

// Summarize computes the headcount part of the dashboard.
func Summarize(employees []core.Employee, now time.Time) DashboardStats {
	d := DashboardStats{TotalEmployees: len(employees), GenderCounts: map[string]int{}}
	locations := map[string]int{}
	newHireDepts := map[string]struct{}{}
	recentDepts := map[string]struct{}{}
	cutoff := now.Add(-recentHireWindow)

	for _, emp := range employees {
		gender := strings.TrimSpace(emp.Gender)
		if gender == "" {
			gender = "Unknown"
		}
		d.GenderCounts[gender]++
		switch strings.ToLower(gender) {
		case "male":
			d.MaleCount++
		case "female":
			d.FemaleCount++
		}

		location := strings.TrimSpace(emp.JobLocation)
		if location == "" {
			location = "Unassigned"
		}
		locations[location]++

		active := strings.EqualFold(emp.Status, core.StatusActive)
		if active {
			d.ActiveEmployees++
		}
		if emp.HireDate == nil {
			continue
		}
		if emp.HireDate.Year() == now.Year() {
			d.NewHiresThisYear++
			newHireDepts[emp.Department] = struct{}{}
		}
		if active && !emp.HireDate.Before(cutoff) {
			d.RecentHires++
			recentDepts[emp.Department] = struct{}{}
		}
	}

	d.NewHireDepartments = len(newHireDepts)
	d.RecentHireDepartments = len(recentDepts)
	for location, count := range locations {
		d.EmployeesByLocation = append(d.EmployeesByLocation, LocationCount{Location: location, Count: count})
	}
	sort.Slice(d.EmployeesByLocation, func(i, j int) bool {
		a, b := d.EmployeesByLocation[i], d.EmployeesByLocation[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Location < b.Location
	})
	return d
}
