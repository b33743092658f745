package core

import (
	"errors"
	"strings"
	"time"
)

const (
	StatusActive      = "active"
	StatusOnProbation = "on-probation"
	StatusResigned    = "resigned"
	StatusTerminated  = "terminated"
)

var ErrEmployeeNotFound = errors.New("employee not found")

type Employee struct {
	EmpID       string     `json:"empId"`
	FirstName   string     `json:"firstName"`
	LastName    string     `json:"lastName"`
	Email       string     `json:"email"`
	Gender      string     `json:"gender"`
	JobLocation string     `json:"jobLocation"`
	Department  string     `json:"department"`
	ManagerID   string     `json:"managerId,omitempty"`
	HireDate    *time.Time `json:"hireDate,omitempty"`
	Status      string     `json:"status"`
	CompanyIDs  []string   `json:"companyIds"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

func (e Employee) FullName() string {
	return strings.TrimSpace(e.FirstName + " " + e.LastName)
}

// Contact is the subset of an employee used on leave request views.
type Contact struct {
	EmpID string `json:"empId"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (e Employee) Contact() Contact {
	return Contact{EmpID: e.EmpID, Name: e.FullName(), Email: e.Email}
}
