package domain

import "testing"

func TestEnumValidation(t *testing.T) {
	for _, p := range []string{"low", "medium", "high"} {
		if !ValidPriority(p) {
			t.Fatalf("expected %q to be a valid priority", p)
		}
	}
	if ValidPriority("urgent") {
		t.Fatalf("urgent is not a priority")
	}
	for _, s := range []string{"todo", "in-progress", "review", "done"} {
		if !ValidStatus(s) {
			t.Fatalf("expected %q to be a valid status", s)
		}
	}
	if ValidStatus("in_progress") {
		t.Fatalf("underscore status must be rejected")
	}
	if Role("owner").Valid() {
		t.Fatalf("owner is not a role")
	}
}

func TestTaskAssignedTo(t *testing.T) {
	id := "u1"
	task := Task{AssigneeID: &id}
	if !task.AssignedTo("u1") || task.AssignedTo("u2") {
		t.Fatalf("unexpected assignment check")
	}
	if (Task{}).AssignedTo("u1") {
		t.Fatalf("unassigned task matched")
	}
}
