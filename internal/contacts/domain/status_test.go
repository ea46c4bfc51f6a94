package domain

import (
	"testing"

	"github.com/google/uuid"
)

func TestCanMove(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		{StatusNew, StatusContacted, true},
		{StatusNew, StatusQualified, true},
		{StatusNegotiation, StatusContacted, true},
		{StatusQualified, StatusLost, true},
		{StatusNew, StatusNew, false},
		{StatusWon, StatusLost, false},
		{StatusLost, StatusNew, false},
		{StatusNew, Status("Archived"), false},
	}
	for _, tc := range cases {
		if got := CanMove(tc.from, tc.to); got != tc.want {
			t.Errorf("CanMove(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestCloneIsIndependent(t *testing.T) {
	owner := uuid.New()
	reason := "budget"
	c := &Contact{OwnerID: &owner, LostReason: &reason, Tags: []string{"a"}}
	c.AddNote("first", AuthorSystem, c.CreatedAt)

	clone := c.Clone()
	*clone.OwnerID = uuid.New()
	*clone.LostReason = "timing"
	clone.Tags[0] = "b"
	clone.Notes[0].Body = "changed"

	if *c.OwnerID != owner || *c.LostReason != "budget" || c.Tags[0] != "a" || c.Notes[0].Body != "first" {
		t.Fatalf("mutating the clone changed the original: %+v", c)
	}
}

func TestHasValidEmail(t *testing.T) {
	if HasValidEmail("") || HasValidEmail("   ") || HasValidEmail("john.example.com") {
		t.Fatal("expected invalid emails to be rejected")
	}
	if !HasValidEmail("john@example.com") {
		t.Fatal("expected valid email to be accepted")
	}
}
