package v1_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "github.com/citylaw/docket/internal/api/v1"
	"github.com/citylaw/docket/internal/domain"
)

// ---------------------------------------------------------------------------
// Cases
// ---------------------------------------------------------------------------

func TestListCases_Scoped(t *testing.T) {
	t.Parallel()

	ctx, me := staffCtx(domain.RoleParalegal)
	api := newAPI(t)
	store := &mockDataStore{
		cases: &mockCaseRepo{
			listFunc: func(_ context.Context, scope domain.Scope, limit, offset int) ([]*domain.Case, error) {
				assert.Equal(t, domain.ScopeCaseTeam, scope.Kind)
				assert.Equal(t, me.UserID, scope.UserID)
				assert.Equal(t, 10, limit)
				assert.Equal(t, 10, offset)
				return nil, nil
			},
		},
	}
	v1.RegisterMatterRoutes(api, store)

	resp := api.GetCtx(ctx, "/cases?page=2&limit=10")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"cases":[]}`, resp.Body.String())
}

func TestGetCase(t *testing.T) {
	t.Parallel()

	attorney := uuid.New()
	cs := &domain.Case{ID: uuid.New(), CaseNumber: "2025-CV-0042", OwnerID: attorney}
	store := &mockDataStore{
		cases: &mockCaseRepo{
			getByIDFunc: func(_ context.Context, id uuid.UUID) (*domain.Case, error) {
				if id != cs.ID {
					return nil, domain.ErrNotFound
				}
				return cs, nil
			},
		},
	}

	t.Run("owner", func(t *testing.T) {
		t.Parallel()

		api := newAPI(t)
		v1.RegisterMatterRoutes(api, store)

		ctx := principalCtx(accessPrincipal(attorney, domain.RoleAttorney))
		resp := api.GetCtx(ctx, "/cases/"+cs.ID.String())
		require.Equal(t, http.StatusOK, resp.Code)
		assert.Equal(t, "2025-CV-0042", jsonBody(t, resp.Body.Bytes())["caseNumber"])
	})

	t.Run("outsider", func(t *testing.T) {
		t.Parallel()

		api := newAPI(t)
		v1.RegisterMatterRoutes(api, store)

		ctx, _ := staffCtx(domain.RoleParalegal)
		resp := api.GetCtx(ctx, "/cases/"+cs.ID.String())
		assert.Equal(t, http.StatusForbidden, resp.Code)
	})

	t.Run("missing", func(t *testing.T) {
		t.Parallel()

		api := newAPI(t)
		v1.RegisterMatterRoutes(api, store)

		ctx, _ := staffCtx(domain.RoleAdmin)
		resp := api.GetCtx(ctx, "/cases/"+uuid.NewString())
		assert.Equal(t, http.StatusNotFound, resp.Code)
	})
}

func TestCreateCase(t *testing.T) {
	t.Parallel()

	t.Run("attorney_owns_new_case", func(t *testing.T) {
		t.Parallel()

		var created *domain.Case
		ctx, me := staffCtx(domain.RoleAttorney)
		api := newAPI(t)
		v1.RegisterMatterRoutes(api, &mockDataStore{
			cases: &mockCaseRepo{
				createFunc: func(_ context.Context, c *domain.Case) error {
					created = c
					return nil
				},
			},
		})

		resp := api.PostCtx(ctx, "/cases", map[string]any{
			"caseNumber": " 2025-CV-0042 ",
			"title":      "City v. Landlord",
		})
		require.Equal(t, http.StatusCreated, resp.Code)
		require.NotNil(t, created)
		assert.Equal(t, me.UserID, created.OwnerID)
		assert.Equal(t, "2025-CV-0042", created.CaseNumber)
		assert.Equal(t, "OPEN", created.Status)
	})

	t.Run("duplicate_number", func(t *testing.T) {
		t.Parallel()

		ctx, _ := staffCtx(domain.RoleAdmin)
		api := newAPI(t)
		v1.RegisterMatterRoutes(api, &mockDataStore{
			cases: &mockCaseRepo{
				createFunc: func(context.Context, *domain.Case) error { return domain.ErrConflict },
			},
		})

		resp := api.PostCtx(ctx, "/cases", map[string]any{"caseNumber": "1", "title": "Dup"})
		assert.Equal(t, http.StatusConflict, resp.Code)
	})

	for _, role := range []domain.Role{domain.RoleParalegal, domain.RoleSupportStaff, domain.RoleClientDept} {
		t.Run("denied_"+string(role), func(t *testing.T) {
			t.Parallel()

			ctx, _ := staffCtx(role)
			api := newAPI(t)
			v1.RegisterMatterRoutes(api, &mockDataStore{cases: &mockCaseRepo{}})

			resp := api.PostCtx(ctx, "/cases", map[string]any{"caseNumber": "1", "title": "Nope"})
			assert.Equal(t, http.StatusForbidden, resp.Code)
		})
	}
}

// ---------------------------------------------------------------------------
// Legal requests
// ---------------------------------------------------------------------------

func TestCreateRequest(t *testing.T) {
	t.Parallel()

	t.Run("client_department_files_for_itself", func(t *testing.T) {
		t.Parallel()

		own := uuid.New()
		var created *domain.LegalRequest
		ctx, me := deptCtx(own)
		api := newAPI(t)
		v1.RegisterMatterRoutes(api, &mockDataStore{
			requests: &mockRequestRepo{
				createFunc: func(_ context.Context, r *domain.LegalRequest) error {
					created = r
					return nil
				},
			},
		})

		resp := api.PostCtx(ctx, "/requests", map[string]any{
			"title":        "Records for 12 Main St",
			"type":         "FOIL",
			"departmentId": uuid.NewString(),
		})
		require.Equal(t, http.StatusCreated, resp.Code)
		require.NotNil(t, created)
		assert.Equal(t, own, created.DepartmentID)
		assert.Equal(t, me.UserID, created.RequesterID)
		assert.Equal(t, domain.RequestTypeFOIL, created.Type)
		assert.Equal(t, "SUBMITTED", created.Status)
	})

	t.Run("staff_must_name_department", func(t *testing.T) {
		t.Parallel()

		ctx, _ := staffCtx(domain.RoleAttorney)
		api := newAPI(t)
		v1.RegisterMatterRoutes(api, &mockDataStore{requests: &mockRequestRepo{}})

		resp := api.PostCtx(ctx, "/requests", map[string]any{"title": "Advice", "type": "LEGAL_SERVICE"})
		require.Equal(t, http.StatusBadRequest, resp.Code)
		details := jsonBody(t, resp.Body.Bytes())["details"].([]any)
		assert.Equal(t, "departmentId", details[0].(map[string]any)["field"])
	})

	t.Run("unknown_type", func(t *testing.T) {
		t.Parallel()

		ctx, _ := staffCtx(domain.RoleAttorney)
		api := newAPI(t)
		v1.RegisterMatterRoutes(api, &mockDataStore{requests: &mockRequestRepo{}})

		resp := api.PostCtx(ctx, "/requests", map[string]any{
			"title": "Advice", "type": "SUBPOENA", "departmentId": uuid.NewString(),
		})
		assert.Equal(t, http.StatusBadRequest, resp.Code)
	})
}

func TestGetRequest_OtherDepartment(t *testing.T) {
	t.Parallel()

	lr := &domain.LegalRequest{ID: uuid.New(), DepartmentID: uuid.New(), RequesterID: uuid.New()}
	api := newAPI(t)
	v1.RegisterMatterRoutes(api, &mockDataStore{
		requests: &mockRequestRepo{
			getByIDFunc: func(context.Context, uuid.UUID) (*domain.LegalRequest, error) { return lr, nil },
		},
	})

	ctx, _ := deptCtx(uuid.New())
	resp := api.GetCtx(ctx, "/requests/"+lr.ID.String())
	assert.Equal(t, http.StatusForbidden, resp.Code)

	ctx, _ = deptCtx(lr.DepartmentID)
	resp = api.GetCtx(ctx, "/requests/"+lr.ID.String())
	assert.Equal(t, http.StatusOK, resp.Code)
}
