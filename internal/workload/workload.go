// Package workload turns a task list into per-member hour totals and
// capacity percentages.
package workload

import (
	"math"

	"taskflow/internal/domain"
)

const (
	DefaultCapacityHours = 40
	DefaultTaskHours     = 8
)

// Options configures the capacity model. Zero values mean the defaults.
type Options struct {
	CapacityHours    float64
	DefaultTaskHours float64
}

func (o Options) capacity() float64 {
	if o.CapacityHours <= 0 {
		return DefaultCapacityHours
	}
	return o.CapacityHours
}

func (o Options) taskHours() float64 {
	if o.DefaultTaskHours <= 0 {
		return DefaultTaskHours
	}
	return o.DefaultTaskHours
}

// Entry is the derived workload of one member. It is never persisted.
type Entry struct {
	MemberID           string  `json:"member_id"`
	TotalHours         float64 `json:"total_hours"`
	TaskCount          int     `json:"task_count"`
	HighPriorityCount  int     `json:"high_priority_count"`
	InProgressCount    int     `json:"in_progress_count"`
	WorkloadPercentage int     `json:"workload_percentage"`
}

// Aggregate returns exactly one Entry per member, in roster order. Tasks that
// are unassigned or assigned to someone outside the roster are ignored.
func Aggregate(members []domain.Member, tasks []domain.Task, opts Options) []Entry {
	byAssignee := make(map[string][]domain.Task, len(members))
	for _, t := range tasks {
		if t.AssigneeID == nil {
			continue
		}
		byAssignee[*t.AssigneeID] = append(byAssignee[*t.AssigneeID], t)
	}
	capacity := opts.capacity()
	out := make([]Entry, 0, len(members))
	for _, m := range members {
		e := Entry{MemberID: m.ID}
		for _, t := range byAssignee[m.ID] {
			e.TotalHours += hoursOf(t, opts.taskHours())
			e.TaskCount++
			if t.Priority == domain.PriorityHigh {
				e.HighPriorityCount++
			}
			if t.Status == domain.StatusInProgress {
				e.InProgressCount++
			}
		}
		e.WorkloadPercentage = Percentage(e.TotalHours, capacity)
		out = append(out, e)
	}
	return out
}

// Percentage rounds hours/capacity*100 half away from zero.
func Percentage(hours, capacity float64) int {
	if capacity <= 0 {
		capacity = DefaultCapacityHours
	}
	pct := math.Round(hours / capacity * 100)
	if pct < 0 {
		return 0
	}
	return int(pct)
}

func hoursOf(t domain.Task, fallback float64) float64 {
	if t.EstimatedHours == nil {
		return fallback
	}
	if *t.EstimatedHours < 0 {
		return 0
	}
	return *t.EstimatedHours
}

// Summary describes a roster as a whole.
type Summary struct {
	Members           int            `json:"members"`
	AveragePercentage int            `json:"average_percentage"`
	TotalHours        float64        `json:"total_hours"`
	ByTier            map[Tier]int   `json:"by_tier"`
	ByRole            map[string]int `json:"by_role"`
}

// Summarize derives team-level figures from already aggregated entries.
func Summarize(members []domain.Member, entries []Entry, th Thresholds) Summary {
	s := Summary{
		Members: len(entries),
		ByTier:  map[Tier]int{TierOverloaded: 0, TierBusy: 0, TierNormal: 0, TierIdle: 0},
		ByRole:  RoleCounts(members),
	}
	if len(entries) == 0 {
		return s
	}
	sum := 0
	for _, e := range entries {
		sum += e.WorkloadPercentage
		s.TotalHours += e.TotalHours
		s.ByTier[th.Classify(float64(e.WorkloadPercentage)).Tier]++
	}
	s.AveragePercentage = int(math.Round(float64(sum) / float64(len(entries))))
	return s
}

// RoleCounts counts members per role. Every known role is present, even at zero.
func RoleCounts(members []domain.Member) map[string]int {
	counts := make(map[string]int, len(domain.Roles))
	for _, r := range domain.Roles {
		counts[string(r)] = 0
	}
	for _, m := range members {
		counts[string(m.Role)]++
	}
	return counts
}
