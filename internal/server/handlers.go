package server

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"stageline/internal/domain"
	"stageline/internal/engine"
	"stageline/internal/engine/auth"
	"stageline/internal/repo"
)

var writeErrors = []int{
	http.StatusBadRequest,
	http.StatusForbidden,
	http.StatusNotFound,
	http.StatusConflict,
	http.StatusInternalServerError,
}

type idPath struct {
	ID int64 `path:"id"`
}

type projectListQuery struct {
	Archived   string `query:"archived" doc:"true, false or all; defaults to false"`
	Status     string `query:"status"`
	AreaID     int64  `query:"area_id"`
	CategoryID int64  `query:"category_id"`
	ManagerID  int64  `query:"manager_user_id"`
}

func (q projectListQuery) filters() (repo.ProjectFilters, error) {
	f := repo.ProjectFilters{
		Status:        strings.TrimSpace(q.Status),
		AreaID:        q.AreaID,
		CategoryID:    q.CategoryID,
		ManagerUserID: q.ManagerID,
	}
	switch strings.TrimSpace(q.Archived) {
	case "all":
	case "":
		archived := false
		f.Archived = &archived
	default:
		archived, err := strconv.ParseBool(q.Archived)
		if err != nil {
			return f, newAPIError(http.StatusBadRequest, "bad_request", "invalid archived filter", map[string]any{"archived": q.Archived})
		}
		f.Archived = &archived
	}
	return f, nil
}

func (h handlers) registerProjects(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-project",
		Method:        http.MethodPost,
		Path:          "/projects",
		Summary:       "Create project",
		Description:   "Creates the project together with its default stage.",
		DefaultStatus: http.StatusCreated,
		Errors:        writeErrors,
	}, func(ctx context.Context, input *struct {
		Body CreateProjectRequest `json:"body"`
	}) (*bodyOut[domain.Project], error) {
		if _, err := authorize(ctx, h.authz, auth.PermProjectCreate); err != nil {
			return nil, err
		}
		p, err := h.engine.CreateProject(ctx, engine.ProjectCreateOptions{
			Name:          input.Body.Name,
			Description:   input.Body.Description,
			StartDate:     input.Body.StartDate,
			EndDate:       input.Body.EndDate,
			ManagerUserID: input.Body.ManagerUserID,
			CategoryID:    input.Body.CategoryID,
			AreaID:        input.Body.AreaID,
			ActorID:       actorIDFromContext(ctx),
		})
		if err != nil {
			return nil, handleError(err)
		}
		return out(p), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-projects",
		Method:      http.MethodGet,
		Path:        "/projects",
		Summary:     "List projects",
		Errors:      []int{http.StatusBadRequest, http.StatusForbidden},
	}, func(ctx context.Context, input *projectListQuery) (*bodyOut[[]domain.Project], error) {
		if _, err := authorize(ctx, h.authz, auth.PermProjectRead); err != nil {
			return nil, err
		}
		f, err := input.filters()
		if err != nil {
			return nil, err
		}
		items, err := h.engine.ListProjects(ctx, f)
		if err != nil {
			return nil, handleError(err)
		}
		return out(nonNilSlice(items)), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-project",
		Method:      http.MethodGet,
		Path:        "/projects/{id}",
		Summary:     "Get project",
		Errors:      []int{http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *idPath) (*bodyOut[domain.Project], error) {
		if _, err := authorize(ctx, h.authz, auth.PermProjectRead); err != nil {
			return nil, err
		}
		p, err := h.engine.GetProject(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return out(p), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-project",
		Method:      http.MethodPatch,
		Path:        "/projects/{id}",
		Summary:     "Update project details",
		Errors:      writeErrors,
	}, func(ctx context.Context, input *struct {
		ID   int64                `path:"id"`
		Body UpdateProjectRequest `json:"body"`
	}) (*bodyOut[domain.Project], error) {
		if _, err := authorize(ctx, h.authz, auth.PermProjectUpdate); err != nil {
			return nil, err
		}
		p, err := h.engine.UpdateProject(ctx, engine.ProjectUpdateOptions{
			ID:            input.ID,
			Name:          input.Body.Name,
			Description:   input.Body.Description,
			StartDate:     input.Body.StartDate,
			EndDate:       input.Body.EndDate,
			ManagerUserID: input.Body.ManagerUserID,
			CategoryID:    input.Body.CategoryID,
			AreaID:        input.Body.AreaID,
			ActorID:       actorIDFromContext(ctx),
		})
		if err != nil {
			return nil, handleError(err)
		}
		return out(p), nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-project",
		Method:        http.MethodDelete,
		Path:          "/projects/{id}",
		Summary:       "Delete project with its stages and activities",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *idPath) (*struct{}, error) {
		if _, err := authorize(ctx, h.authz, auth.PermProjectDelete); err != nil {
			return nil, err
		}
		if err := h.engine.DeleteProject(ctx, input.ID, actorIDFromContext(ctx)); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	transitions := []struct {
		id      string
		suffix  string
		summary string
		perm    string
		apply   func(context.Context, int64, string) (domain.Project, error)
	}{
		{"complete-project", "complete", "Mark project completed", auth.PermProjectClose, h.engine.CompleteProject},
		{"archive-project", "archive", "Archive project", auth.PermProjectClose, h.engine.ArchiveProject},
		{"unarchive-project", "unarchive", "Unarchive project", auth.PermProjectClose, h.engine.UnarchiveProject},
	}
	for _, tr := range transitions {
		tr := tr
		huma.Register(api, huma.Operation{
			OperationID: tr.id,
			Method:      http.MethodPost,
			Path:        "/projects/{id}/" + tr.suffix,
			Summary:     tr.summary,
			Errors:      []int{http.StatusForbidden, http.StatusNotFound},
		}, func(ctx context.Context, input *idPath) (*bodyOut[domain.Project], error) {
			if _, err := authorize(ctx, h.authz, tr.perm); err != nil {
				return nil, err
			}
			p, err := tr.apply(ctx, input.ID, actorIDFromContext(ctx))
			if err != nil {
				return nil, handleError(err)
			}
			return out(p), nil
		})
	}

	huma.Register(api, huma.Operation{
		OperationID: "recompute-project",
		Method:      http.MethodPost,
		Path:        "/projects/{id}/recompute",
		Summary:     "Re-derive project status from its activities",
		Errors:      []int{http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *idPath) (*bodyOut[engine.Aggregation], error) {
		if _, err := authorize(ctx, h.authz, auth.PermProjectUpdate); err != nil {
			return nil, err
		}
		agg, err := h.engine.RecomputeProject(ctx, input.ID, actorIDFromContext(ctx))
		if err != nil {
			return nil, handleError(err)
		}
		return out(agg), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "project-board",
		Method:      http.MethodGet,
		Path:        "/projects/{id}/board",
		Summary:     "Kanban board: stages in order with their activities",
		Errors:      []int{http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *idPath) (*bodyOut[engine.Board], error) {
		if _, err := authorize(ctx, h.authz, auth.PermProjectRead); err != nil {
			return nil, err
		}
		b, err := h.engine.Board(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		b.Stages = nonNilSlice(b.Stages)
		return out(b), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "project-timeline",
		Method:      http.MethodGet,
		Path:        "/projects/{id}/timeline",
		Summary:     "Gantt timeline of the project activities",
		Errors:      []int{http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *idPath) (*bodyOut[engine.Timeline], error) {
		if _, err := authorize(ctx, h.authz, auth.PermProjectRead); err != nil {
			return nil, err
		}
		tl, err := h.engine.Timeline(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		tl.Items = nonNilSlice(tl.Items)
		return out(tl), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "project-summary",
		Method:      http.MethodGet,
		Path:        "/projects/{id}/summary",
		Summary:     "Activity tally and status",
		Errors:      []int{http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *idPath) (*bodyOut[engine.Summary], error) {
		if _, err := authorize(ctx, h.authz, auth.PermProjectRead); err != nil {
			return nil, err
		}
		s, err := h.engine.Summary(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return out(s), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "project-events",
		Method:      http.MethodGet,
		Path:        "/projects/{id}/events",
		Summary:     "Recent events of a project",
		Errors:      []int{http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID    int64 `path:"id"`
		Limit int   `query:"limit" default:"50"`
	}) (*bodyOut[[]domain.Event], error) {
		if _, err := authorize(ctx, h.authz, auth.PermEventsRead); err != nil {
			return nil, err
		}
		if _, err := h.engine.GetProject(ctx, input.ID); err != nil {
			return nil, handleError(err)
		}
		items, err := h.engine.ListEvents(ctx, input.ID, normalizeLimit(input.Limit))
		if err != nil {
			return nil, handleError(err)
		}
		return out(nonNilSlice(items)), nil
	})
}

func (h handlers) registerStages(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-stage",
		Method:        http.MethodPost,
		Path:          "/projects/{id}/stages",
		Summary:       "Append a stage to the board",
		DefaultStatus: http.StatusCreated,
		Errors:        writeErrors,
	}, func(ctx context.Context, input *struct {
		ID   int64              `path:"id"`
		Body CreateStageRequest `json:"body"`
	}) (*bodyOut[domain.Stage], error) {
		if _, err := authorize(ctx, h.authz, auth.PermStageWrite); err != nil {
			return nil, err
		}
		st, err := h.engine.CreateStage(ctx, engine.StageCreateOptions{
			ProjectID:   input.ID,
			Name:        input.Body.Name,
			Description: input.Body.Description,
			Color:       input.Body.Color,
			Status:      input.Body.Status,
			ActorID:     actorIDFromContext(ctx),
		})
		if err != nil {
			return nil, handleError(err)
		}
		return out(st), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-stages",
		Method:      http.MethodGet,
		Path:        "/projects/{id}/stages",
		Summary:     "List stages in ordinal order",
		Errors:      []int{http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *idPath) (*bodyOut[[]domain.Stage], error) {
		if _, err := authorize(ctx, h.authz, auth.PermProjectRead); err != nil {
			return nil, err
		}
		items, err := h.engine.ListStages(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return out(nonNilSlice(items)), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-stage",
		Method:      http.MethodGet,
		Path:        "/stages/{id}",
		Summary:     "Get stage",
		Errors:      []int{http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *idPath) (*bodyOut[domain.Stage], error) {
		if _, err := authorize(ctx, h.authz, auth.PermProjectRead); err != nil {
			return nil, err
		}
		st, err := h.engine.GetStage(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return out(st), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-stage",
		Method:      http.MethodPatch,
		Path:        "/stages/{id}",
		Summary:     "Update stage",
		Errors:      writeErrors,
	}, func(ctx context.Context, input *struct {
		ID   int64              `path:"id"`
		Body UpdateStageRequest `json:"body"`
	}) (*bodyOut[domain.Stage], error) {
		if _, err := authorize(ctx, h.authz, auth.PermStageWrite); err != nil {
			return nil, err
		}
		st, err := h.engine.UpdateStage(ctx, engine.StageUpdateOptions{
			ID:          input.ID,
			Name:        input.Body.Name,
			Description: input.Body.Description,
			Color:       input.Body.Color,
			Status:      input.Body.Status,
			ActorID:     actorIDFromContext(ctx),
		})
		if err != nil {
			return nil, handleError(err)
		}
		return out(st), nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-stage",
		Method:        http.MethodDelete,
		Path:          "/stages/{id}",
		Summary:       "Delete stage and close the ordinal gap",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *idPath) (*struct{}, error) {
		if _, err := authorize(ctx, h.authz, auth.PermStageWrite); err != nil {
			return nil, err
		}
		if err := h.engine.DeleteStage(ctx, input.ID, actorIDFromContext(ctx)); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "move-stage",
		Method:      http.MethodPost,
		Path:        "/stages/{id}/move",
		Summary:     "Swap a stage with its neighbor",
		Errors:      writeErrors,
	}, func(ctx context.Context, input *struct {
		ID   int64            `path:"id"`
		Body MoveStageRequest `json:"body"`
	}) (*bodyOut[domain.Stage], error) {
		if _, err := authorize(ctx, h.authz, auth.PermStageReorder); err != nil {
			return nil, err
		}
		st, err := h.engine.ReorderStage(ctx, input.ID, input.Body.Direction, actorIDFromContext(ctx))
		if err != nil {
			return nil, handleError(err)
		}
		return out(st), nil
	})
}

func (h handlers) registerActivities(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-activity",
		Method:        http.MethodPost,
		Path:          "/stages/{id}/activities",
		Summary:       "Create activity in a stage",
		DefaultStatus: http.StatusCreated,
		Errors:        writeErrors,
	}, func(ctx context.Context, input *struct {
		ID   int64                 `path:"id"`
		Body CreateActivityRequest `json:"body"`
	}) (*bodyOut[domain.Activity], error) {
		if _, err := authorize(ctx, h.authz, auth.PermActivityWrite); err != nil {
			return nil, err
		}
		a, err := h.engine.CreateActivity(ctx, engine.ActivityCreateOptions{
			StageID:          input.ID,
			Title:            input.Body.Title,
			Description:      input.Body.Description,
			Status:           input.Body.Status,
			Priority:         input.Body.Priority,
			AssignedToUserID: input.Body.AssignedToUserID,
			StartDate:        input.Body.StartDate,
			EndDate:          input.Body.EndDate,
			ActorID:          actorIDFromContext(ctx),
		})
		if err != nil {
			return nil, handleError(err)
		}
		return out(a), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-activities",
		Method:      http.MethodGet,
		Path:        "/stages/{id}/activities",
		Summary:     "List activities of a stage",
		Errors:      []int{http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *idPath) (*bodyOut[[]domain.Activity], error) {
		if _, err := authorize(ctx, h.authz, auth.PermProjectRead); err != nil {
			return nil, err
		}
		items, err := h.engine.ListActivities(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return out(nonNilSlice(items)), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-activity",
		Method:      http.MethodGet,
		Path:        "/activities/{id}",
		Summary:     "Get activity",
		Errors:      []int{http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *idPath) (*bodyOut[domain.Activity], error) {
		if _, err := authorize(ctx, h.authz, auth.PermProjectRead); err != nil {
			return nil, err
		}
		a, err := h.engine.GetActivity(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return out(a), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-activity",
		Method:      http.MethodPatch,
		Path:        "/activities/{id}",
		Summary:     "Update activity",
		Description: "Partial update. Setting stage_id moves the activity; both projects are re-derived.",
		Errors:      writeErrors,
	}, func(ctx context.Context, input *struct {
		ID   int64                 `path:"id"`
		Body UpdateActivityRequest `json:"body"`
	}) (*bodyOut[domain.Activity], error) {
		if _, err := authorize(ctx, h.authz, auth.PermActivityWrite); err != nil {
			return nil, err
		}
		a, err := h.engine.UpdateActivity(ctx, engine.ActivityUpdateOptions{
			ID:                input.ID,
			StageID:           input.Body.StageID,
			Title:             input.Body.Title,
			Description:       input.Body.Description,
			Status:            input.Body.Status,
			Priority:          input.Body.Priority,
			AssignedToUserID:  input.Body.AssignedToUserID,
			StartDate:         input.Body.StartDate,
			EndDate:           input.Body.EndDate,
			ExecutedStartDate: input.Body.ExecutedStartDate,
			ExecutedEndDate:   input.Body.ExecutedEndDate,
			ActorID:           actorIDFromContext(ctx),
		})
		if err != nil {
			return nil, handleError(err)
		}
		return out(a), nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-activity",
		Method:        http.MethodDelete,
		Path:          "/activities/{id}",
		Summary:       "Delete activity",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *idPath) (*struct{}, error) {
		if _, err := authorize(ctx, h.authz, auth.PermActivityWrite); err != nil {
			return nil, err
		}
		if err := h.engine.DeleteActivity(ctx, input.ID, actorIDFromContext(ctx)); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-activity-status",
		Method:      http.MethodPost,
		Path:        "/activities/{id}/status",
		Summary:     "Change activity status",
		Description: "Applies the executed-date side effects and re-derives the project status.",
		Errors:      writeErrors,
	}, func(ctx context.Context, input *struct {
		ID   int64                 `path:"id"`
		Body ActivityStatusRequest `json:"body"`
	}) (*bodyOut[domain.Activity], error) {
		if _, err := authorize(ctx, h.authz, auth.PermActivityStatus); err != nil {
			return nil, err
		}
		a, err := h.engine.ApplyActivityStatusChange(ctx, input.ID, input.Body.Status, actorIDFromContext(ctx))
		if err != nil {
			return nil, handleError(err)
		}
		return out(a), nil
	})
}

func (h handlers) registerUsers(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-user",
		Method:        http.MethodPost,
		Path:          "/users",
		Summary:       "Create user",
		DefaultStatus: http.StatusCreated,
		Errors:        writeErrors,
	}, func(ctx context.Context, input *struct {
		Body UserRequest `json:"body"`
	}) (*bodyOut[domain.User], error) {
		if _, err := authorize(ctx, h.authz, auth.PermUserManage); err != nil {
			return nil, err
		}
		u, err := h.engine.CreateUser(ctx, engine.UserOptions{
			Name:    input.Body.Name,
			Email:   input.Body.Email,
			Role:    input.Body.Role,
			AreaID:  input.Body.AreaID,
			ActorID: actorIDFromContext(ctx),
		})
		if err != nil {
			return nil, handleError(err)
		}
		return out(u), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-users",
		Method:      http.MethodGet,
		Path:        "/users",
		Summary:     "List users",
		Errors:      []int{http.StatusForbidden},
	}, func(ctx context.Context, _ *struct{}) (*bodyOut[[]domain.User], error) {
		if _, err := authorize(ctx, h.authz, auth.PermProjectRead); err != nil {
			return nil, err
		}
		items, err := h.engine.ListUsers(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return out(nonNilSlice(items)), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-user",
		Method:      http.MethodPut,
		Path:        "/users/{id}",
		Summary:     "Replace user details",
		Errors:      writeErrors,
	}, func(ctx context.Context, input *struct {
		ID   int64       `path:"id"`
		Body UserRequest `json:"body"`
	}) (*bodyOut[domain.User], error) {
		if _, err := authorize(ctx, h.authz, auth.PermUserManage); err != nil {
			return nil, err
		}
		u, err := h.engine.UpdateUser(ctx, engine.UserOptions{
			ID:      input.ID,
			Name:    input.Body.Name,
			Email:   input.Body.Email,
			Role:    input.Body.Role,
			AreaID:  input.Body.AreaID,
			ActorID: actorIDFromContext(ctx),
		})
		if err != nil {
			return nil, handleError(err)
		}
		return out(u), nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-user",
		Method:        http.MethodDelete,
		Path:          "/users/{id}",
		Summary:       "Delete user",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *idPath) (*struct{}, error) {
		if _, err := authorize(ctx, h.authz, auth.PermUserManage); err != nil {
			return nil, err
		}
		if err := h.engine.DeleteUser(ctx, input.ID, actorIDFromContext(ctx)); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-api-key",
		Method:        http.MethodPost,
		Path:          "/users/{id}/api-keys",
		Summary:       "Issue an API key",
		Description:   "The plaintext key is only returned by this call.",
		DefaultStatus: http.StatusCreated,
		Errors:        writeErrors,
	}, func(ctx context.Context, input *struct {
		ID   int64               `path:"id"`
		Body CreateAPIKeyRequest `json:"body"`
	}) (*bodyOut[APIKeyResponse], error) {
		if _, err := h.authorizeSelfOrManage(ctx, input.ID); err != nil {
			return nil, err
		}
		key, secret, err := h.engine.CreateAPIKey(ctx, input.ID, input.Body.Name, actorIDFromContext(ctx))
		if err != nil {
			return nil, handleError(err)
		}
		return out(apiKeyResponse(key, secret)), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-api-keys",
		Method:      http.MethodGet,
		Path:        "/users/{id}/api-keys",
		Summary:     "List API keys",
		Errors:      []int{http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *idPath) (*bodyOut[[]APIKeyResponse], error) {
		if _, err := h.authorizeSelfOrManage(ctx, input.ID); err != nil {
			return nil, err
		}
		keys, err := h.engine.ListAPIKeys(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		resp := make([]APIKeyResponse, 0, len(keys))
		for _, k := range keys {
			resp = append(resp, apiKeyResponse(k, ""))
		}
		return out(resp), nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "revoke-api-key",
		Method:        http.MethodDelete,
		Path:          "/api-keys/{key_id}",
		Summary:       "Revoke API key",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		KeyID string `path:"key_id"`
	}) (*struct{}, error) {
		if _, err := authorize(ctx, h.authz, auth.PermUserManage); err != nil {
			return nil, err
		}
		if err := h.engine.RevokeAPIKey(ctx, input.KeyID, actorIDFromContext(ctx)); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

// authorizeSelfOrManage lets users manage their own keys without user.manage.
func (h handlers) authorizeSelfOrManage(ctx context.Context, userID int64) (Principal, error) {
	p, authErr := principalFromRequest(ctx)
	if authErr != nil {
		return Principal{}, authErr
	}
	if p.UserID == userID {
		return p, nil
	}
	return authorize(ctx, h.authz, auth.PermUserManage)
}

func (h handlers) registerCatalog(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-area",
		Method:        http.MethodPost,
		Path:          "/areas",
		Summary:       "Create area",
		DefaultStatus: http.StatusCreated,
		Errors:        writeErrors,
	}, func(ctx context.Context, input *struct {
		Body AreaRequest `json:"body"`
	}) (*bodyOut[domain.Area], error) {
		if _, err := authorize(ctx, h.authz, auth.PermCatalogManage); err != nil {
			return nil, err
		}
		a, err := h.engine.CreateArea(ctx, domain.Area{Name: input.Body.Name, Description: input.Body.Description}, actorIDFromContext(ctx))
		if err != nil {
			return nil, handleError(err)
		}
		return out(a), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-areas",
		Method:      http.MethodGet,
		Path:        "/areas",
		Summary:     "List areas",
		Errors:      []int{http.StatusForbidden},
	}, func(ctx context.Context, _ *struct{}) (*bodyOut[[]domain.Area], error) {
		if _, err := authorize(ctx, h.authz, auth.PermProjectRead); err != nil {
			return nil, err
		}
		items, err := h.engine.ListAreas(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return out(nonNilSlice(items)), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-area",
		Method:      http.MethodPut,
		Path:        "/areas/{id}",
		Summary:     "Update area",
		Errors:      writeErrors,
	}, func(ctx context.Context, input *struct {
		ID   int64       `path:"id"`
		Body AreaRequest `json:"body"`
	}) (*bodyOut[domain.Area], error) {
		if _, err := authorize(ctx, h.authz, auth.PermCatalogManage); err != nil {
			return nil, err
		}
		a, err := h.engine.UpdateArea(ctx, domain.Area{ID: input.ID, Name: input.Body.Name, Description: input.Body.Description}, actorIDFromContext(ctx))
		if err != nil {
			return nil, handleError(err)
		}
		return out(a), nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-area",
		Method:        http.MethodDelete,
		Path:          "/areas/{id}",
		Summary:       "Delete area",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *idPath) (*struct{}, error) {
		if _, err := authorize(ctx, h.authz, auth.PermCatalogManage); err != nil {
			return nil, err
		}
		if err := h.engine.DeleteArea(ctx, input.ID, actorIDFromContext(ctx)); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-category",
		Method:        http.MethodPost,
		Path:          "/categories",
		Summary:       "Create category",
		DefaultStatus: http.StatusCreated,
		Errors:        writeErrors,
	}, func(ctx context.Context, input *struct {
		Body CategoryRequest `json:"body"`
	}) (*bodyOut[domain.Category], error) {
		if _, err := authorize(ctx, h.authz, auth.PermCatalogManage); err != nil {
			return nil, err
		}
		c, err := h.engine.CreateCategory(ctx, domain.Category{Name: input.Body.Name, Color: input.Body.Color}, actorIDFromContext(ctx))
		if err != nil {
			return nil, handleError(err)
		}
		return out(c), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-categories",
		Method:      http.MethodGet,
		Path:        "/categories",
		Summary:     "List categories",
		Errors:      []int{http.StatusForbidden},
	}, func(ctx context.Context, _ *struct{}) (*bodyOut[[]domain.Category], error) {
		if _, err := authorize(ctx, h.authz, auth.PermProjectRead); err != nil {
			return nil, err
		}
		items, err := h.engine.ListCategories(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return out(nonNilSlice(items)), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-category",
		Method:      http.MethodPut,
		Path:        "/categories/{id}",
		Summary:     "Update category",
		Errors:      writeErrors,
	}, func(ctx context.Context, input *struct {
		ID   int64           `path:"id"`
		Body CategoryRequest `json:"body"`
	}) (*bodyOut[domain.Category], error) {
		if _, err := authorize(ctx, h.authz, auth.PermCatalogManage); err != nil {
			return nil, err
		}
		c, err := h.engine.UpdateCategory(ctx, domain.Category{ID: input.ID, Name: input.Body.Name, Color: input.Body.Color}, actorIDFromContext(ctx))
		if err != nil {
			return nil, handleError(err)
		}
		return out(c), nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-category",
		Method:        http.MethodDelete,
		Path:          "/categories/{id}",
		Summary:       "Delete category",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *idPath) (*struct{}, error) {
		if _, err := authorize(ctx, h.authz, auth.PermCatalogManage); err != nil {
			return nil, err
		}
		if err := h.engine.DeleteCategory(ctx, input.ID, actorIDFromContext(ctx)); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func (h handlers) registerEvents(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "list-events",
		Method:      http.MethodGet,
		Path:        "/events",
		Summary:     "Recent events across all projects",
		Errors:      []int{http.StatusForbidden},
	}, func(ctx context.Context, input *struct {
		Limit int `query:"limit" default:"50"`
	}) (*bodyOut[[]domain.Event], error) {
		if _, err := authorize(ctx, h.authz, auth.PermEventsRead); err != nil {
			return nil, err
		}
		items, err := h.engine.ListEvents(ctx, 0, normalizeLimit(input.Limit))
		if err != nil {
			return nil, handleError(err)
		}
		return out(nonNilSlice(items)), nil
	})
}
