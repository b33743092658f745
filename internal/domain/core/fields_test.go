package core

import (
	"reflect"
	"testing"
)

func TestIsEligible(t *testing.T) {
	cases := map[string]bool{
		"active":       true,
		"Active":       true,
		"on-probation": true,
		"resigned":     false,
		"terminated":   false,
		"":             false,
	}
	for status, want := range cases {
		if got := IsEligible(status); got != want {
			t.Fatalf("IsEligible(%q) = %v, want %v", status, got, want)
		}
	}
}

func TestNormalizeScope(t *testing.T) {
	got := NormalizeScope([]string{" c2", "c1", "", "c2"})
	want := []string{"c1", "c2"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if len(NormalizeScope(nil)) != 0 {
		t.Fatal("expected empty scope")
	}
}

func TestInScope(t *testing.T) {
	if !InScope([]string{"a", "b"}, []string{"b"}) {
		t.Fatal("expected intersection")
	}
	if InScope([]string{"a"}, []string{"b"}) {
		t.Fatal("did not expect intersection")
	}
	if InScope([]string{"a"}, nil) {
		t.Fatal("empty scope must not match")
	}
}

func TestEmployeeContact(t *testing.T) {
	emp := Employee{EmpID: "E1", FirstName: "Asha", LastName: "", Email: "asha@example.com"}
	c := emp.Contact()
	if c.Name != "Asha" || c.Email != "asha@example.com" || c.EmpID != "E1" {
		t.Fatalf("unexpected contact %+v", c)
	}
}
