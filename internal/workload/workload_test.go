package workload

import (
	"reflect"
	"testing"

	"taskflow/internal/domain"
)

func ptr[T any](v T) *T { return &v }

func member(id string, role domain.Role) domain.Member {
	return domain.Member{ID: id, Name: "Member " + id, Email: id + "@example.com", Role: role}
}

func task(id string, assignee *string, hours *float64, priority, status string) domain.Task {
	return domain.Task{ID: id, Title: "task " + id, AssigneeID: assignee, EstimatedHours: hours, Priority: priority, Status: status}
}

func TestAggregateExampleOverloaded(t *testing.T) {
	members := []domain.Member{member("u1", domain.RoleEmployee)}
	tasks := []domain.Task{
		task("1", ptr("u1"), ptr(20.0), "medium", "todo"),
		task("2", ptr("u1"), ptr(25.0), "medium", "todo"),
	}
	got := Aggregate(members, tasks, Options{})
	if len(got) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(got))
	}
	if got[0].TotalHours != 45 {
		t.Fatalf("expected 45 hours, got %v", got[0].TotalHours)
	}
	if got[0].WorkloadPercentage != 113 {
		t.Fatalf("expected 113%%, got %d", got[0].WorkloadPercentage)
	}
	if tier := Classify(float64(got[0].WorkloadPercentage)).Tier; tier != TierOverloaded {
		t.Fatalf("expected overloaded, got %s", tier)
	}
}

func TestAggregateOneEntryPerMember(t *testing.T) {
	members := []domain.Member{member("a", domain.RoleAdmin), member("b", domain.RoleManager), member("c", domain.RoleEmployee)}
	tasks := []domain.Task{
		task("1", ptr("a"), nil, "high", "in-progress"),
		task("2", ptr("ghost"), ptr(30.0), "high", "todo"),
		task("3", nil, ptr(12.0), "low", "todo"),
	}
	got := Aggregate(members, tasks, Options{})
	if len(got) != len(members) {
		t.Fatalf("expected %d entries, got %d", len(members), len(got))
	}
	for i, m := range members {
		if got[i].MemberID != m.ID {
			t.Fatalf("entry %d: expected member %s, got %s", i, m.ID, got[i].MemberID)
		}
	}
	if got[1].TotalHours != 0 || got[1].WorkloadPercentage != 0 || got[1].TaskCount != 0 {
		t.Fatalf("member without tasks should be zero-valued: %+v", got[1])
	}
	a := got[0]
	if a.TaskCount != 1 || a.HighPriorityCount != 1 || a.InProgressCount != 1 {
		t.Fatalf("unexpected counts: %+v", a)
	}
}

func TestAggregateDefaultHours(t *testing.T) {
	members := []domain.Member{member("u1", domain.RoleEmployee)}
	tasks := []domain.Task{
		task("1", ptr("u1"), nil, "low", "todo"),
		task("2", ptr("u1"), nil, "low", "todo"),
	}
	got := Aggregate(members, tasks, Options{})
	if got[0].TotalHours != 16 {
		t.Fatalf("missing estimates must count as 8h each, got %v", got[0].TotalHours)
	}
	if got[0].WorkloadPercentage != 40 {
		t.Fatalf("expected 40%%, got %d", got[0].WorkloadPercentage)
	}

	custom := Aggregate(members, tasks, Options{CapacityHours: 32, DefaultTaskHours: 4})
	if custom[0].TotalHours != 8 || custom[0].WorkloadPercentage != 25 {
		t.Fatalf("custom options not applied: %+v", custom[0])
	}
}

func TestAggregateEmptyRoster(t *testing.T) {
	got := Aggregate(nil, []domain.Task{task("1", ptr("u1"), ptr(5.0), "low", "todo")}, Options{})
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", got)
	}
}

func TestAggregateIdempotent(t *testing.T) {
	members := []domain.Member{member("u1", domain.RoleEmployee), member("u2", domain.RoleEmployee)}
	tasks := []domain.Task{
		task("1", ptr("u1"), ptr(3.5), "high", "review"),
		task("2", ptr("u2"), nil, "medium", "in-progress"),
	}
	first := Aggregate(members, tasks, Options{})
	second := Aggregate(members, tasks, Options{})
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("aggregate is not deterministic: %+v vs %+v", first, second)
	}
}

func TestAggregateNegativeEstimate(t *testing.T) {
	members := []domain.Member{member("u1", domain.RoleEmployee)}
	got := Aggregate(members, []domain.Task{task("1", ptr("u1"), ptr(-10.0), "low", "todo")}, Options{})
	if got[0].TotalHours != 0 || got[0].WorkloadPercentage != 0 {
		t.Fatalf("negative estimate should not reduce workload: %+v", got[0])
	}
}

// math.Round rounds half away from zero: 12.5 -> 13, 37.5 -> 38.
func TestPercentageRoundsHalfAwayFromZero(t *testing.T) {
	cases := []struct {
		hours    float64
		capacity float64
		want     int
	}{
		{hours: 1, capacity: 8, want: 13},    // 12.5%
		{hours: 3, capacity: 8, want: 38},    // 37.5%
		{hours: 45, capacity: 40, want: 113}, // 112.5%
		{hours: 0.19, capacity: 40, want: 0}, // 0.475%
		{hours: 10, capacity: 0, want: 25},   // default capacity
		{hours: 60, capacity: 40, want: 150},
	}
	for _, tc := range cases {
		if got := Percentage(tc.hours, tc.capacity); got != tc.want {
			t.Fatalf("Percentage(%v, %v) = %d, want %d", tc.hours, tc.capacity, got, tc.want)
		}
	}
}

func TestSummarizeAndRoleCounts(t *testing.T) {
	members := []domain.Member{member("a", domain.RoleAdmin), member("b", domain.RoleEmployee), member("c", domain.RoleEmployee)}
	tasks := []domain.Task{
		task("1", ptr("a"), ptr(40.0), "low", "todo"),
		task("2", ptr("b"), ptr(20.0), "low", "todo"),
	}
	entries := Aggregate(members, tasks, Options{})
	s := Summarize(members, entries, DefaultThresholds)
	if s.Members != 3 || s.TotalHours != 60 {
		t.Fatalf("unexpected summary: %+v", s)
	}
	if s.AveragePercentage != 50 {
		t.Fatalf("expected average 50, got %d", s.AveragePercentage)
	}
	if s.ByTier[TierOverloaded] != 1 || s.ByTier[TierNormal] != 1 || s.ByTier[TierIdle] != 1 {
		t.Fatalf("unexpected tiers: %+v", s.ByTier)
	}
	want := map[string]int{"admin": 1, "manager": 0, "employee": 2}
	if !reflect.DeepEqual(s.ByRole, want) {
		t.Fatalf("role counts = %v, want %v", s.ByRole, want)
	}
	// derived fresh on every call; callers cannot corrupt later results
	s.ByRole["admin"] = 99
	if RoleCounts(members)["admin"] != 1 {
		t.Fatalf("role counts must not share state")
	}
}
