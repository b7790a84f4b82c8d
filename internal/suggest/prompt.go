package suggest

import (
	"fmt"
	"strconv"
	"strings"

	"taskflow/internal/workload"
)

const responseShape = `{
  "recommendations": [
    {
      "memberId": "<id from the team list>",
      "memberName": "<name>",
      "score": <0-100>,
      "reasons": ["<why this member fits>"],
      "risks": ["<possible concern, may be empty>"],
      "projectedWorkloadAfter": <workload percentage after taking the task>
    }
  ],
  "warnings": ["<team-level concerns>"],
  "suggestions": ["<other advice, e.g. split the task>"]
}`

// BuildPrompt renders the draft task and the roster into a single user prompt.
func BuildPrompt(draft TaskDraft, roster []Candidate) string {
	var b strings.Builder
	b.WriteString("You are helping a project manager choose who should own a new task.\n")
	b.WriteString("Rank the team members below by how well they fit, considering current workload, ")
	b.WriteString("role, department and the work they already have in flight.\n\n")

	b.WriteString("## Task\n")
	fmt.Fprintf(&b, "Title: %s\n", draft.Title)
	if d := strings.TrimSpace(draft.Description); d != "" {
		fmt.Fprintf(&b, "Description: %s\n", d)
	}
	fmt.Fprintf(&b, "Priority: %s\n", orDefault(draft.Priority, "medium"))
	fmt.Fprintf(&b, "Due date: %s\n", orDefault(deref(draft.DueDate), "none"))
	if draft.EstimatedHours != nil {
		fmt.Fprintf(&b, "Estimated hours: %s\n", formatHours(*draft.EstimatedHours))
	} else {
		assumed := draft.DefaultHours
		if assumed <= 0 {
			assumed = workload.DefaultTaskHours
		}
		fmt.Fprintf(&b, "Estimated hours: unknown (assume %s)\n", formatHours(assumed))
	}

	b.WriteString("\n## Team\n")
	if len(roster) == 0 {
		b.WriteString("(no members)\n")
	}
	for _, c := range roster {
		m := c.Member
		fmt.Fprintf(&b, "- id: %s\n  name: %s\n  email: %s\n  department: %s\n  role: %s\n",
			m.ID, m.Name, m.Email, orDefault(m.Department, "n/a"), m.Role)
		fmt.Fprintf(&b, "  workload: %d%% (%s hours, %d tasks)\n",
			c.Workload.WorkloadPercentage, formatHours(c.Workload.TotalHours), c.Workload.TaskCount)
		if len(c.RecentTasks) == 0 {
			b.WriteString("  active tasks: none\n")
			continue
		}
		b.WriteString("  active tasks:\n")
		for _, t := range c.RecentTasks {
			fmt.Fprintf(&b, "    - %s [priority=%s, due=%s, hours=%s, status=%s]\n",
				t.Title, t.Priority, orDefault(deref(t.DueDate), "none"), formatHours(t.EstimatedHours), t.Status)
		}
	}

	b.WriteString("\n## Output\n")
	b.WriteString("Respond with JSON only, no prose, using exactly this shape:\n")
	b.WriteString(responseShape)
	b.WriteString("\nOnly use member ids listed above.\n")
	return b.String()
}

func formatHours(h float64) string {
	return strconv.FormatFloat(h, 'f', -1, 64)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
