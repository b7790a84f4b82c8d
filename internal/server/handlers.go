package server

import (
	"context"
	"net/http"
	"strconv"

	"github.com/danielgtaylor/huma/v2"

	"taskflow/internal/domain"
	"taskflow/internal/engine"
	"taskflow/internal/repo"
	"taskflow/internal/suggest"
)

type idPath struct {
	ID string `path:"id"`
}

func registerMembers(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "createMember",
		Method:        http.MethodPost,
		Path:          "/members",
		Summary:       "Create member",
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, in *struct {
		Body CreateMemberRequest
	}) (*output[domain.Member], error) {
		actorID, aerr := actorIDFromContext(ctx)
		if aerr != nil {
			return nil, aerr
		}
		m, err := e.CreateMember(ctx, engine.MemberCreateOptions{
			ID:         in.Body.ID,
			Name:       in.Body.Name,
			Email:      in.Body.Email,
			Role:       domain.Role(in.Body.Role),
			Department: in.Body.Department,
			AvatarURL:  in.Body.AvatarURL,
			ActorID:    actorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return reply(m), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "listMembers",
		Method:      http.MethodGet,
		Path:        "/members",
		Summary:     "List members",
	}, func(ctx context.Context, in *struct {
		Role string `query:"role"`
	}) (*output[[]domain.Member], error) {
		actorID, aerr := actorIDFromContext(ctx)
		if aerr != nil {
			return nil, aerr
		}
		members, err := e.Members(ctx, actorID, in.Role)
		if err != nil {
			return nil, handleError(err)
		}
		return reply(members), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "getMember",
		Method:      http.MethodGet,
		Path:        "/members/{id}",
		Summary:     "Get member",
	}, func(ctx context.Context, in *idPath) (*output[domain.Member], error) {
		actorID, aerr := actorIDFromContext(ctx)
		if aerr != nil {
			return nil, aerr
		}
		m, err := e.Member(ctx, actorID, in.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return reply(m), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "updateMember",
		Method:      http.MethodPatch,
		Path:        "/members/{id}",
		Summary:     "Update member",
	}, func(ctx context.Context, in *struct {
		ID   string `path:"id"`
		Body UpdateMemberRequest
	}) (*output[domain.Member], error) {
		actorID, aerr := actorIDFromContext(ctx)
		if aerr != nil {
			return nil, aerr
		}
		u := repo.MemberUpdate{
			Name:       in.Body.Name,
			Department: in.Body.Department,
			AvatarURL:  in.Body.AvatarURL,
		}
		if in.Body.Role != nil {
			role := domain.Role(*in.Body.Role)
			u.Role = &role
		}
		m, err := e.UpdateMember(ctx, in.ID, u, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return reply(m), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "whoAmI",
		Method:      http.MethodGet,
		Path:        "/me",
		Summary:     "Current member and permissions",
	}, func(ctx context.Context, _ *struct{}) (*output[WhoAmIResponse], error) {
		p, ok := principalFromContext(ctx)
		if !ok || p.MemberID == "" {
			return nil, newAPIError(http.StatusUnauthorized, "unauthorized", "authentication required", nil)
		}
		m, err := e.Actor(ctx, p.MemberID)
		if err != nil {
			return nil, handleError(err)
		}
		return reply(WhoAmIResponse{Member: m, Permissions: e.Auth.Permissions(m.Role), Source: p.Source}), nil
	})
}

func registerTeams(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "createTeam",
		Method:        http.MethodPost,
		Path:          "/teams",
		Summary:       "Create team",
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, in *struct {
		Body CreateTeamRequest
	}) (*output[domain.Team], error) {
		actorID, aerr := actorIDFromContext(ctx)
		if aerr != nil {
			return nil, aerr
		}
		t, err := e.CreateTeam(ctx, in.Body.Name, in.Body.Description, in.Body.MemberIDs, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return reply(t), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "listTeams",
		Method:      http.MethodGet,
		Path:        "/teams",
		Summary:     "List teams",
	}, func(ctx context.Context, _ *struct{}) (*output[[]domain.Team], error) {
		actorID, aerr := actorIDFromContext(ctx)
		if aerr != nil {
			return nil, aerr
		}
		teams, err := e.Teams(ctx, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return reply(teams), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "getTeam",
		Method:      http.MethodGet,
		Path:        "/teams/{id}",
		Summary:     "Get team",
	}, func(ctx context.Context, in *idPath) (*output[domain.Team], error) {
		actorID, aerr := actorIDFromContext(ctx)
		if aerr != nil {
			return nil, aerr
		}
		t, err := e.Team(ctx, actorID, in.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return reply(t), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "addTeamMember",
		Method:      http.MethodPost,
		Path:        "/teams/{id}/members",
		Summary:     "Add a member to a team",
	}, func(ctx context.Context, in *struct {
		ID   string `path:"id"`
		Body AddTeamMemberRequest
	}) (*output[domain.Team], error) {
		actorID, aerr := actorIDFromContext(ctx)
		if aerr != nil {
			return nil, aerr
		}
		t, err := e.AddTeamMember(ctx, in.ID, in.Body.MemberID, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return reply(t), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "removeTeamMember",
		Method:      http.MethodDelete,
		Path:        "/teams/{id}/members/{member_id}",
		Summary:     "Remove a member from a team",
	}, func(ctx context.Context, in *struct {
		ID       string `path:"id"`
		MemberID string `path:"member_id"`
	}) (*output[domain.Team], error) {
		actorID, aerr := actorIDFromContext(ctx)
		if aerr != nil {
			return nil, aerr
		}
		t, err := e.RemoveTeamMember(ctx, in.ID, in.MemberID, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return reply(t), nil
	})
}

func registerProjects(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "createProject",
		Method:        http.MethodPost,
		Path:          "/projects",
		Summary:       "Create project",
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, in *struct {
		Body CreateProjectRequest
	}) (*output[domain.Project], error) {
		actorID, aerr := actorIDFromContext(ctx)
		if aerr != nil {
			return nil, aerr
		}
		p, err := e.CreateProject(ctx, domain.Project{
			Name:        in.Body.Name,
			Description: in.Body.Description,
			TeamID:      in.Body.TeamID,
			Status:      in.Body.Status,
		}, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return reply(p), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "listProjects",
		Method:      http.MethodGet,
		Path:        "/projects",
		Summary:     "List projects",
	}, func(ctx context.Context, in *struct {
		TeamID string `query:"team_id"`
	}) (*output[[]domain.Project], error) {
		actorID, aerr := actorIDFromContext(ctx)
		if aerr != nil {
			return nil, aerr
		}
		projects, err := e.Projects(ctx, actorID, in.TeamID)
		if err != nil {
			return nil, handleError(err)
		}
		return reply(projects), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "getProject",
		Method:      http.MethodGet,
		Path:        "/projects/{id}",
		Summary:     "Get project",
	}, func(ctx context.Context, in *idPath) (*output[domain.Project], error) {
		actorID, aerr := actorIDFromContext(ctx)
		if aerr != nil {
			return nil, aerr
		}
		p, err := e.Project(ctx, actorID, in.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return reply(p), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "getProjectTaskCounts",
		Method:      http.MethodGet,
		Path:        "/projects/{id}/task-counts",
		Summary:     "Count project tasks by status",
	}, func(ctx context.Context, in *idPath) (*output[map[string]int], error) {
		actorID, aerr := actorIDFromContext(ctx)
		if aerr != nil {
			return nil, aerr
		}
		counts, err := e.ProjectTaskCounts(ctx, actorID, in.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return reply(counts), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "updateProject",
		Method:      http.MethodPatch,
		Path:        "/projects/{id}",
		Summary:     "Update project",
	}, func(ctx context.Context, in *struct {
		ID   string `path:"id"`
		Body UpdateProjectRequest
	}) (*output[domain.Project], error) {
		actorID, aerr := actorIDFromContext(ctx)
		if aerr != nil {
			return nil, aerr
		}
		p, err := e.UpdateProject(ctx, in.ID, repo.ProjectUpdate{
			Name:        in.Body.Name,
			Description: in.Body.Description,
			Status:      in.Body.Status,
			TeamID:      in.Body.TeamID,
		}, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return reply(p), nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "deleteProject",
		Method:        http.MethodDelete,
		Path:          "/projects/{id}",
		Summary:       "Delete project; its tasks are kept without a project",
		DefaultStatus: http.StatusNoContent,
	}, func(ctx context.Context, in *idPath) (*struct{}, error) {
		actorID, aerr := actorIDFromContext(ctx)
		if aerr != nil {
			return nil, aerr
		}
		if err := e.DeleteProject(ctx, in.ID, actorID); err != nil {
			return nil, handleError(err)
		}
		return nil, nil
	})
}

func registerTasks(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "createTask",
		Method:        http.MethodPost,
		Path:          "/tasks",
		Summary:       "Create task",
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, in *struct {
		Body CreateTaskRequest
	}) (*output[domain.Task], error) {
		actorID, aerr := actorIDFromContext(ctx)
		if aerr != nil {
			return nil, aerr
		}
		t, err := e.CreateTask(ctx, engine.TaskCreateOptions{
			ID:             in.Body.ID,
			ProjectID:      in.Body.ProjectID,
			Title:          in.Body.Title,
			Description:    in.Body.Description,
			Priority:       in.Body.Priority,
			Status:         in.Body.Status,
			DueDate:        in.Body.DueDate,
			EstimatedHours: in.Body.EstimatedHours,
			AssigneeID:     in.Body.AssigneeID,
			ActorID:        actorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return reply(t), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "listTasks",
		Method:      http.MethodGet,
		Path:        "/tasks",
		Summary:     "List tasks visible to the caller",
	}, func(ctx context.Context, in *struct {
		ProjectID  string `query:"project_id"`
		AssigneeID string `query:"assignee_id"`
		Status     string `query:"status"`
		Priority   string `query:"priority"`
		DueFrom    string `query:"due_from"`
		DueTo      string `query:"due_to"`
		Limit      int    `query:"limit"`
		Cursor     string `query:"cursor"`
	}) (*output[paginatedTasks], error) {
		actorID, aerr := actorIDFromContext(ctx)
		if aerr != nil {
			return nil, aerr
		}
		limit := normalizeLimit(in.Limit)
		ts, id, err := parseCompositeCursor(in.Cursor)
		if err != nil {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", err.Error(), nil)
		}
		tasks, err := e.VisibleTasks(ctx, actorID, repo.TaskFilters{
			ProjectID:       in.ProjectID,
			AssigneeID:      in.AssigneeID,
			Status:          in.Status,
			Priority:        in.Priority,
			DueFrom:         in.DueFrom,
			DueTo:           in.DueTo,
			Limit:           limit + 1,
			CursorCreatedAt: ts,
			CursorID:        id,
		})
		if err != nil {
			return nil, handleError(err)
		}
		var next string
		if len(tasks) > limit {
			last := tasks[limit-1]
			next = composeCursor(last.CreatedAt, last.ID)
			tasks = tasks[:limit]
		}
		return reply(paginatedTasks{Items: tasks, NextCursor: next}), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "getTask",
		Method:      http.MethodGet,
		Path:        "/tasks/{id}",
		Summary:     "Get task",
	}, func(ctx context.Context, in *idPath) (*output[domain.Task], error) {
		actorID, aerr := actorIDFromContext(ctx)
		if aerr != nil {
			return nil, aerr
		}
		t, err := e.VisibleTask(ctx, actorID, in.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return reply(t), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "updateTask",
		Method:      http.MethodPatch,
		Path:        "/tasks/{id}",
		Summary:     "Update task",
	}, func(ctx context.Context, in *struct {
		ID   string `path:"id"`
		Body UpdateTaskRequest
	}) (*output[domain.Task], error) {
		actorID, aerr := actorIDFromContext(ctx)
		if aerr != nil {
			return nil, aerr
		}
		b := in.Body
		t, err := e.UpdateTask(ctx, engine.TaskUpdateOptions{
			ID:             in.ID,
			Title:          b.Title,
			Description:    b.Description,
			Priority:       b.Priority,
			Status:         b.Status,
			ProjectID:      b.ProjectID,
			DueDate:        b.DueDate,
			EstimatedHours: b.EstimatedHours,
			ClearEstimate:  b.ClearEstimate,
			Assign:         b.AssigneeID,
			ActorID:        actorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return reply(t), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "rescheduleTask",
		Method:      http.MethodPost,
		Path:        "/tasks/{id}/reschedule",
		Summary:     "Move a task's due date",
	}, func(ctx context.Context, in *struct {
		ID   string `path:"id"`
		Body RescheduleTaskRequest
	}) (*output[domain.Task], error) {
		actorID, aerr := actorIDFromContext(ctx)
		if aerr != nil {
			return nil, aerr
		}
		t, err := e.RescheduleTask(ctx, in.ID, in.Body.DueDate, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return reply(t), nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "deleteTask",
		Method:        http.MethodDelete,
		Path:          "/tasks/{id}",
		Summary:       "Delete task",
		DefaultStatus: http.StatusNoContent,
	}, func(ctx context.Context, in *idPath) (*struct{}, error) {
		actorID, aerr := actorIDFromContext(ctx)
		if aerr != nil {
			return nil, aerr
		}
		if err := e.DeleteTask(ctx, in.ID, actorID); err != nil {
			return nil, handleError(err)
		}
		return nil, nil
	})
}

func registerWorkload(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "getWorkload",
		Method:      http.MethodGet,
		Path:        "/workload",
		Summary:     "Workload per member with status tiers",
	}, func(ctx context.Context, in *struct {
		TeamID string `query:"team_id" doc:"Limit the roster to one team"`
	}) (*output[WorkloadResponse], error) {
		actorID, aerr := actorIDFromContext(ctx)
		if aerr != nil {
			return nil, aerr
		}
		report, err := e.TeamWorkload(ctx, in.TeamID, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return reply(workloadResponse(report)), nil
	})
}

func registerSuggestions(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "suggestAssignees",
		Method:      http.MethodPost,
		Path:        "/assignee-suggestions",
		Summary:     "Rank team members for a task",
		Description: "Sends one request to the configured model. Upstream failures return 502 and are never replaced by a local ranking.",
	}, func(ctx context.Context, in *struct {
		Body SuggestRequest
	}) (*output[suggest.Result], error) {
		actorID, aerr := actorIDFromContext(ctx)
		if aerr != nil {
			return nil, aerr
		}
		res, err := e.SuggestAssignees(ctx, in.Body.Task, in.Body.TeamID, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return reply(res), nil
	})
}

func registerNotifications(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "listNotifications",
		Method:      http.MethodGet,
		Path:        "/notifications",
		Summary:     "List the caller's notifications",
	}, func(ctx context.Context, in *struct {
		Unread bool `query:"unread"`
		Limit  int  `query:"limit"`
	}) (*output[notificationList], error) {
		actorID, aerr := actorIDFromContext(ctx)
		if aerr != nil {
			return nil, aerr
		}
		items, err := e.Notifications(ctx, actorID, in.Unread, normalizeLimit(in.Limit))
		if err != nil {
			return nil, handleError(err)
		}
		unread := 0
		for _, n := range items {
			if !n.Read {
				unread++
			}
		}
		return reply(notificationList{Items: items, Unread: unread}), nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "markNotificationRead",
		Method:        http.MethodPost,
		Path:          "/notifications/{id}/read",
		Summary:       "Mark a notification read",
		DefaultStatus: http.StatusNoContent,
	}, func(ctx context.Context, in *idPath) (*struct{}, error) {
		actorID, aerr := actorIDFromContext(ctx)
		if aerr != nil {
			return nil, aerr
		}
		if err := e.MarkNotificationRead(ctx, actorID, in.ID); err != nil {
			return nil, handleError(err)
		}
		return nil, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "markAllNotificationsRead",
		Method:      http.MethodPost,
		Path:        "/notifications/read-all",
		Summary:     "Mark every notification read",
	}, func(ctx context.Context, _ *struct{}) (*output[markAllResponse], error) {
		actorID, aerr := actorIDFromContext(ctx)
		if aerr != nil {
			return nil, aerr
		}
		n, err := e.MarkAllNotificationsRead(ctx, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return reply(markAllResponse{Updated: n}), nil
	})
}

func registerEvents(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "listEvents",
		Method:      http.MethodGet,
		Path:        "/events",
		Summary:     "Audit log, newest first",
	}, func(ctx context.Context, in *struct {
		Type       string `query:"type"`
		EntityKind string `query:"entity_kind"`
		EntityID   string `query:"entity_id"`
		ActorID    string `query:"actor_id"`
		Limit      int    `query:"limit"`
		Cursor     string `query:"cursor" doc:"Event id returned as next_cursor"`
	}) (*output[paginatedEvents], error) {
		actorID, aerr := actorIDFromContext(ctx)
		if aerr != nil {
			return nil, aerr
		}
		limit := normalizeLimit(in.Limit)
		var before int64
		if in.Cursor != "" {
			v, err := strconv.ParseInt(in.Cursor, 10, 64)
			if err != nil || v <= 0 {
				return nil, newAPIError(http.StatusBadRequest, "bad_request", "invalid cursor", nil)
			}
			before = v
		}
		evs, err := e.ListEvents(ctx, actorID, repo.EventFilters{
			Type:       in.Type,
			EntityKind: in.EntityKind,
			EntityID:   in.EntityID,
			ActorID:    in.ActorID,
			Before:     before,
			Limit:      limit + 1,
		})
		if err != nil {
			return nil, handleError(err)
		}
		var next string
		if len(evs) > limit {
			evs = evs[:limit]
			next = strconv.FormatInt(evs[limit-1].ID, 10)
		}
		return reply(paginatedEvents{Items: evs, NextCursor: next}), nil
	})
}
