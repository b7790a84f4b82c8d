package engine_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"taskflow/internal/config"
	"taskflow/internal/db"
	"taskflow/internal/domain"
	"taskflow/internal/engine"
	"taskflow/internal/engine/auth"
	"taskflow/internal/logging"
	"taskflow/internal/migrate"
	"taskflow/internal/repo"
	"taskflow/internal/suggest"
	"taskflow/internal/workload"
)

type fakeRecommender struct {
	draft  suggest.TaskDraft
	roster []suggest.Candidate
	result suggest.Result
	err    error
	calls  int
}

func (f *fakeRecommender) Recommend(_ context.Context, draft suggest.TaskDraft, roster []suggest.Candidate) (suggest.Result, error) {
	f.calls++
	f.draft, f.roster = draft, roster
	return f.result, f.err
}

type testEnv struct {
	Engine engine.Engine
	Ctx    context.Context
	Fake   *fakeRecommender
	// admin, manager and two employees
	Admin, Manager, Ada, Bob domain.Member
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	ctx := context.Background()
	if _, err := migrate.Migrate(ctx, conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	fake := &fakeRecommender{}
	eng := engine.New(conn, config.Default("test"))
	eng.Now = func() time.Time { return time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC) }
	eng.Assistant = fake
	eng.Logger = logging.Discard()

	admin, err := eng.Bootstrap(ctx, "root")
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	mk := func(id, name string, role domain.Role) domain.Member {
		m, err := eng.CreateMember(ctx, engine.MemberCreateOptions{ID: id, Name: name, Email: id + "@example.com", Role: role, ActorID: admin.ID})
		if err != nil {
			t.Fatalf("create member %s: %v", id, err)
		}
		return m
	}
	return testEnv{
		Engine:  eng,
		Ctx:     ctx,
		Fake:    fake,
		Admin:   admin,
		Manager: mk("mgr", "Morgan", domain.RoleManager),
		Ada:     mk("ada", "Ada", domain.RoleEmployee),
		Bob:     mk("bob", "Bob", domain.RoleEmployee),
	}
}

func hours(h float64) *float64 { return &h }

func TestBootstrapRoles(t *testing.T) {
	env := newTestEnv(t)
	if env.Admin.Role != domain.RoleAdmin {
		t.Fatalf("first member should be admin, got %s", env.Admin.Role)
	}
	late, err := env.Engine.Bootstrap(env.Ctx, "newcomer")
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	if late.Role != domain.RoleEmployee {
		t.Fatalf("later members should be employees, got %s", late.Role)
	}
	again, err := env.Engine.Bootstrap(env.Ctx, "root")
	if err != nil || again.Role != domain.RoleAdmin {
		t.Fatalf("bootstrap must not alter existing members: %+v %v", again, err)
	}
}

func TestCreateMemberValidation(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.Engine.CreateMember(env.Ctx, engine.MemberCreateOptions{Name: "X", Email: "nope", ActorID: env.Admin.ID})
	if !errors.Is(err, engine.ErrInvalid) {
		t.Fatalf("expected ErrInvalid for bad email, got %v", err)
	}
	_, err = env.Engine.CreateMember(env.Ctx, engine.MemberCreateOptions{Name: "X", Email: "ada@example.com", ActorID: env.Admin.ID})
	if !errors.Is(err, repo.ErrDuplicate) {
		t.Fatalf("expected duplicate email error, got %v", err)
	}
	_, err = env.Engine.CreateMember(env.Ctx, engine.MemberCreateOptions{Name: "X", Email: "x@example.com", ActorID: env.Ada.ID})
	var fe auth.ForbiddenError
	if !errors.As(err, &fe) {
		t.Fatalf("employees cannot add members, got %v", err)
	}
}

func TestTaskAssignmentNotifies(t *testing.T) {
	env := newTestEnv(t)
	task, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{
		Title: "Write release notes", Priority: domain.PriorityHigh, AssigneeID: env.Ada.ID, EstimatedHours: hours(3), ActorID: env.Manager.ID,
	})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	if task.Status != domain.StatusTodo || !task.AssignedTo(env.Ada.ID) {
		t.Fatalf("unexpected task: %+v", task)
	}
	notes, err := env.Engine.Notifications(env.Ctx, env.Ada.ID, true, 0)
	if err != nil || len(notes) != 1 || notes[0].Kind != engine.NotifyAssigned {
		t.Fatalf("expected assignment notification, got %+v %v", notes, err)
	}

	bob := env.Bob.ID
	if _, err := env.Engine.UpdateTask(env.Ctx, engine.TaskUpdateOptions{ID: task.ID, Assign: &bob, ActorID: env.Manager.ID}); err != nil {
		t.Fatalf("reassign: %v", err)
	}
	bobNotes, _ := env.Engine.Notifications(env.Ctx, bob, false, 0)
	adaNotes, _ := env.Engine.Notifications(env.Ctx, env.Ada.ID, false, 0)
	if len(bobNotes) != 1 || len(adaNotes) != 2 {
		t.Fatalf("expected notifications for both members, got bob=%d ada=%d", len(bobNotes), len(adaNotes))
	}

	moved, err := env.Engine.RescheduleTask(env.Ctx, task.ID, "2026-01-09", env.Manager.ID)
	if err != nil || moved.DueDate == nil || *moved.DueDate != "2026-01-09" {
		t.Fatalf("reschedule: %+v %v", moved, err)
	}
	bobNotes, _ = env.Engine.Notifications(env.Ctx, bob, true, 0)
	if len(bobNotes) != 2 || bobNotes[0].Kind != engine.NotifyRescheduled && bobNotes[1].Kind != engine.NotifyRescheduled {
		t.Fatalf("expected reschedule notification, got %+v", bobNotes)
	}
	n, err := env.Engine.MarkAllNotificationsRead(env.Ctx, bob)
	if err != nil || n != 2 {
		t.Fatalf("mark all read: %d %v", n, err)
	}

	evts, err := env.Engine.ListEvents(env.Ctx, env.Admin.ID, repo.EventFilters{EntityKind: "task", EntityID: task.ID})
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	if len(evts) != 4 {
		t.Fatalf("expected created, updated, assigned and rescheduled events, got %d", len(evts))
	}
}

func TestTaskValidation(t *testing.T) {
	env := newTestEnv(t)
	cases := []engine.TaskCreateOptions{
		{Title: "", ActorID: env.Ada.ID},
		{Title: "x", Priority: "urgent", ActorID: env.Ada.ID},
		{Title: "x", Status: "blocked", ActorID: env.Ada.ID},
		{Title: "x", DueDate: "05/01/2026", ActorID: env.Ada.ID},
		{Title: "x", EstimatedHours: hours(-2), ActorID: env.Ada.ID},
	}
	for i, opts := range cases {
		if _, err := env.Engine.CreateTask(env.Ctx, opts); !errors.Is(err, engine.ErrInvalid) {
			t.Fatalf("case %d: expected ErrInvalid, got %v", i, err)
		}
	}
	if _, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{Title: "x", ProjectID: "missing", ActorID: env.Ada.ID}); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected not found project, got %v", err)
	}
}

func TestEmployeePermissions(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{Title: "x", AssigneeID: env.Bob.ID, ActorID: env.Ada.ID})
	var fe auth.ForbiddenError
	if !errors.As(err, &fe) || fe.Permission != auth.PermTaskAssign {
		t.Fatalf("employee assigning others should be forbidden, got %v", err)
	}
	own, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{Title: "mine", AssigneeID: env.Ada.ID, ActorID: env.Ada.ID})
	if err != nil {
		t.Fatalf("self-assigned task: %v", err)
	}
	if err := env.Engine.DeleteTask(env.Ctx, own.ID, env.Ada.ID); err != nil {
		t.Fatalf("creator delete: %v", err)
	}
	other, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{Title: "theirs", ActorID: env.Manager.ID})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := env.Engine.DeleteTask(env.Ctx, other.ID, env.Ada.ID); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("employee deleting a task they cannot see should get ErrNotFound, got %v", err)
	}
	ada := env.Ada.ID
	claimed, err := env.Engine.UpdateTask(env.Ctx, engine.TaskUpdateOptions{ID: other.ID, Assign: &ada, ActorID: env.Manager.ID})
	if err != nil || !claimed.AssignedTo(ada) {
		t.Fatalf("manager assign: %v", err)
	}
	status := domain.StatusInProgress
	if _, err := env.Engine.UpdateTask(env.Ctx, engine.TaskUpdateOptions{ID: other.ID, Status: &status, ActorID: ada}); err != nil {
		t.Fatalf("assignee status update: %v", err)
	}
	if _, err := env.Engine.ListEvents(env.Ctx, ada, repo.EventFilters{}); !errors.As(err, &fe) {
		t.Fatalf("employees cannot read the event log, got %v", err)
	}
}

func TestVisibleTasksByRole(t *testing.T) {
	env := newTestEnv(t)
	mk := func(title, assignee, actor string) {
		if _, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{Title: title, AssigneeID: assignee, ActorID: actor}); err != nil {
			t.Fatalf("create %s: %v", title, err)
		}
	}
	mk("for ada", env.Ada.ID, env.Manager.ID)
	mk("for bob", env.Bob.ID, env.Manager.ID)
	mk("unassigned by ada", "", env.Ada.ID)
	mk("unassigned by mgr", "", env.Manager.ID)

	all, err := env.Engine.VisibleTasks(env.Ctx, env.Manager.ID, repo.TaskFilters{})
	if err != nil || len(all) != 4 {
		t.Fatalf("manager should see 4 tasks, got %d %v", len(all), err)
	}
	mine, err := env.Engine.VisibleTasks(env.Ctx, env.Ada.ID, repo.TaskFilters{})
	if err != nil || len(mine) != 2 {
		t.Fatalf("employee should see 2 tasks, got %d %v", len(mine), err)
	}
	for _, task := range mine {
		if !task.AssignedTo(env.Ada.ID) && task.CreatedBy != env.Ada.ID {
			t.Fatalf("employee saw foreign task %q", task.Title)
		}
	}
	hidden := all[0]
	for _, task := range all {
		if task.AssignedTo(env.Bob.ID) {
			hidden = task
		}
	}
	if _, err := env.Engine.VisibleTask(env.Ctx, env.Ada.ID, hidden.ID); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("hidden task should look missing, got %v", err)
	}
	status := domain.StatusDone
	if _, err := env.Engine.UpdateTask(env.Ctx, engine.TaskUpdateOptions{ID: hidden.ID, Status: &status, ActorID: env.Ada.ID}); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("updating a hidden task should look missing, got %v", err)
	}
	if _, err := env.Engine.RescheduleTask(env.Ctx, hidden.ID, "2026-03-01", env.Ada.ID); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("rescheduling a hidden task should look missing, got %v", err)
	}
}

func TestVisibleTasksNewestFirst(t *testing.T) {
	env := newTestEnv(t)
	base := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)
	for _, c := range []struct {
		title string
		at    time.Duration
	}{{"older", 100 * time.Millisecond}, {"newer", 150 * time.Millisecond}} {
		at := base.Add(c.at)
		env.Engine.Now = func() time.Time { return at }
		if _, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{Title: c.title, ActorID: env.Manager.ID}); err != nil {
			t.Fatalf("create %s: %v", c.title, err)
		}
	}
	tasks, err := env.Engine.VisibleTasks(env.Ctx, env.Manager.ID, repo.TaskFilters{})
	if err != nil || len(tasks) != 2 {
		t.Fatalf("list: %v %v", tasks, err)
	}
	if tasks[0].Title != "newer" {
		t.Fatalf("expected newest first, got %q", tasks[0].Title)
	}
}

func TestTeamWorkload(t *testing.T) {
	env := newTestEnv(t)
	team, err := env.Engine.CreateTeam(env.Ctx, "Platform", "", []string{env.Ada.ID, env.Bob.ID}, env.Manager.ID)
	if err != nil {
		t.Fatalf("create team: %v", err)
	}
	mk := func(assignee string, h *float64, priority, status string) {
		if _, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{
			Title: "t", AssigneeID: assignee, EstimatedHours: h, Priority: priority, Status: status, ActorID: env.Manager.ID,
		}); err != nil {
			t.Fatalf("create task: %v", err)
		}
	}
	mk(env.Ada.ID, hours(20), domain.PriorityHigh, domain.StatusInProgress)
	mk(env.Ada.ID, hours(25), domain.PriorityLow, domain.StatusTodo)
	mk(env.Ada.ID, hours(100), domain.PriorityLow, domain.StatusDone)
	mk(env.Bob.ID, nil, domain.PriorityMedium, domain.StatusReview)
	mk(env.Manager.ID, hours(40), domain.PriorityMedium, domain.StatusTodo)
	mk("", hours(40), domain.PriorityMedium, domain.StatusTodo)

	report, err := env.Engine.TeamWorkload(env.Ctx, team.ID, env.Ada.ID)
	if err != nil {
		t.Fatalf("workload: %v", err)
	}
	if len(report.Members) != 2 {
		t.Fatalf("expected one row per team member, got %d", len(report.Members))
	}
	byID := map[string]engine.MemberWorkload{}
	for _, row := range report.Members {
		byID[row.Member.ID] = row
	}
	ada := byID[env.Ada.ID]
	if ada.Workload.TotalHours != 45 || ada.Workload.WorkloadPercentage != 113 || ada.Status.Tier != workload.TierOverloaded {
		t.Fatalf("unexpected ada workload: %+v", ada)
	}
	if ada.Workload.HighPriorityCount != 1 || ada.Workload.InProgressCount != 1 || ada.Workload.TaskCount != 2 {
		t.Fatalf("unexpected ada counts: %+v", ada.Workload)
	}
	bob := byID[env.Bob.ID]
	if bob.Workload.TotalHours != 8 || bob.Workload.WorkloadPercentage != 20 || bob.Status.Tier != workload.TierIdle {
		t.Fatalf("unexpected bob workload: %+v", bob)
	}
	if report.Summary.ByRole["employee"] != 2 || report.Summary.ByTier[workload.TierOverloaded] != 1 {
		t.Fatalf("unexpected summary: %+v", report.Summary)
	}

	everyone, err := env.Engine.TeamWorkload(env.Ctx, "", env.Admin.ID)
	if err != nil || len(everyone.Members) != 4 {
		t.Fatalf("expected all 4 members, got %d %v", len(everyone.Members), err)
	}
	if _, err := env.Engine.TeamWorkload(env.Ctx, "nope", env.Admin.ID); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected missing team, got %v", err)
	}
}

func TestWorkloadIncludeDone(t *testing.T) {
	env := newTestEnv(t)
	env.Engine.Config.Workload.IncludeDone = true
	if _, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{
		Title: "old", AssigneeID: env.Ada.ID, EstimatedHours: hours(10), Status: domain.StatusDone, ActorID: env.Manager.ID,
	}); err != nil {
		t.Fatalf("create: %v", err)
	}
	report, err := env.Engine.TeamWorkload(env.Ctx, "", env.Admin.ID)
	if err != nil {
		t.Fatalf("workload: %v", err)
	}
	for _, row := range report.Members {
		if row.Member.ID == env.Ada.ID && row.Workload.TotalHours != 10 {
			t.Fatalf("done task should count when configured, got %+v", row.Workload)
		}
	}
}

func TestSuggestAssignees(t *testing.T) {
	env := newTestEnv(t)
	due := "2026-01-20"
	if _, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{
		Title: "Ada's open work", AssigneeID: env.Ada.ID, EstimatedHours: hours(12), DueDate: due, ActorID: env.Manager.ID,
	}); err != nil {
		t.Fatalf("create: %v", err)
	}
	env.Fake.result = suggest.Result{
		Recommendations: []suggest.Recommendation{{MemberID: env.Bob.ID, MemberName: "Bob", Score: 90}},
		Warnings:        []string{},
		Suggestions:     []string{},
	}
	res, err := env.Engine.SuggestAssignees(env.Ctx, suggest.TaskDraft{Title: "New feature", Priority: "high"}, "", env.Manager.ID)
	if err != nil {
		t.Fatalf("suggest: %v", err)
	}
	if env.Fake.calls != 1 || len(res.Recommendations) != 1 {
		t.Fatalf("expected a single upstream call, got %d", env.Fake.calls)
	}
	if env.Fake.draft.DefaultHours != env.Engine.Config.Workload.DefaultTaskHours {
		t.Fatalf("draft should carry the configured default estimate, got %v", env.Fake.draft.DefaultHours)
	}
	if len(env.Fake.roster) != 4 {
		t.Fatalf("roster should hold every member, got %d", len(env.Fake.roster))
	}
	for _, c := range env.Fake.roster {
		if c.Member.ID != env.Ada.ID {
			continue
		}
		if c.Workload.TotalHours != 12 || c.Workload.WorkloadPercentage != 30 {
			t.Fatalf("unexpected candidate workload: %+v", c.Workload)
		}
		if len(c.RecentTasks) != 1 || c.RecentTasks[0].Title != "Ada's open work" || *c.RecentTasks[0].DueDate != due {
			t.Fatalf("unexpected recent tasks: %+v", c.RecentTasks)
		}
	}

	env.Fake.err = suggest.RequestFailedError{StatusCode: 500, Message: "boom"}
	if _, err := env.Engine.SuggestAssignees(env.Ctx, suggest.TaskDraft{Title: "again"}, "", env.Manager.ID); !errors.Is(err, suggest.ErrRequestFailed) {
		t.Fatalf("expected request failure to propagate, got %v", err)
	}
	if env.Fake.calls != 2 {
		t.Fatalf("failures must not be retried, got %d calls", env.Fake.calls)
	}

	if _, err := env.Engine.SuggestAssignees(env.Ctx, suggest.TaskDraft{Title: "x"}, "", env.Ada.ID); err == nil {
		t.Fatalf("employees cannot run suggestions by default")
	}
	if _, err := env.Engine.SuggestAssignees(env.Ctx, suggest.TaskDraft{}, "", env.Manager.ID); !errors.Is(err, engine.ErrInvalid) {
		t.Fatalf("expected ErrInvalid for missing title, got %v", err)
	}

	env.Engine.Assistant = nil
	if _, err := env.Engine.SuggestAssignees(env.Ctx, suggest.TaskDraft{Title: "x"}, "", env.Manager.ID); !errors.Is(err, engine.ErrAssistantDisabled) {
		t.Fatalf("expected ErrAssistantDisabled, got %v", err)
	}
}

func TestProjectsAndTeams(t *testing.T) {
	env := newTestEnv(t)
	team, err := env.Engine.CreateTeam(env.Ctx, "Web", "frontend", nil, env.Manager.ID)
	if err != nil {
		t.Fatalf("team: %v", err)
	}
	team, err = env.Engine.AddTeamMember(env.Ctx, team.ID, env.Ada.ID, env.Manager.ID)
	if err != nil || len(team.MemberIDs) != 1 {
		t.Fatalf("add member: %+v %v", team, err)
	}
	p, err := env.Engine.CreateProject(env.Ctx, domain.Project{Name: "Site", TeamID: &team.ID}, env.Manager.ID)
	if err != nil || p.Status != "active" {
		t.Fatalf("project: %+v %v", p, err)
	}
	task, err := env.Engine.CreateTask(env.Ctx, engine.TaskCreateOptions{Title: "hero", ProjectID: p.ID, ActorID: env.Manager.ID})
	if err != nil {
		t.Fatalf("task: %v", err)
	}
	counts, err := env.Engine.ProjectTaskCounts(env.Ctx, env.Manager.ID, p.ID)
	if err != nil || counts[domain.StatusTodo] != 1 || counts[domain.StatusDone] != 0 {
		t.Fatalf("task counts: %v %v", counts, err)
	}
	if _, err := env.Engine.ProjectTaskCounts(env.Ctx, env.Ada.ID, p.ID); err == nil {
		t.Fatalf("employees cannot read project-wide counts")
	}
	team, err = env.Engine.RemoveTeamMember(env.Ctx, team.ID, env.Ada.ID, env.Manager.ID)
	if err != nil || len(team.MemberIDs) != 0 {
		t.Fatalf("remove member: %+v %v", team, err)
	}
	if _, err := env.Engine.RemoveTeamMember(env.Ctx, team.ID, env.Ada.ID, env.Manager.ID); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected ErrNotFound removing a non-member, got %v", err)
	}
	paused := "paused"
	if p, err = env.Engine.UpdateProject(env.Ctx, p.ID, repo.ProjectUpdate{Status: &paused}, env.Manager.ID); err != nil || p.Status != paused {
		t.Fatalf("update project: %+v %v", p, err)
	}
	if err := env.Engine.DeleteProject(env.Ctx, p.ID, env.Manager.ID); err != nil {
		t.Fatalf("delete project: %v", err)
	}
	got, err := env.Engine.Repo.GetTask(env.Ctx, task.ID)
	if err != nil || got.ProjectID != nil {
		t.Fatalf("task should survive without project: %+v %v", got, err)
	}
	if _, err := env.Engine.CreateProject(env.Ctx, domain.Project{Name: "X"}, env.Ada.ID); err == nil {
		t.Fatalf("employees cannot create projects")
	}
}
