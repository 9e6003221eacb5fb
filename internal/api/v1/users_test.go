package v1_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "github.com/citylaw/docket/internal/api/v1"
	"github.com/citylaw/docket/internal/auth"
	"github.com/citylaw/docket/internal/domain"
)

func TestGetMe(t *testing.T) {
	t.Parallel()

	ctx, me := staffCtx(domain.RoleSupportStaff)
	api := newAPI(t)
	v1.RegisterProfileRoutes(api, &mockDataStore{
		users: &mockUserRepo{
			getByIDFunc: func(_ context.Context, id uuid.UUID) (*domain.User, error) {
				return &domain.User{ID: id, Email: "sam@city.gov", Role: domain.RoleSupportStaff, PasswordHash: "secret"}, nil
			},
		},
	})

	resp := api.GetCtx(ctx, "/me")
	require.Equal(t, http.StatusOK, resp.Code)

	body := jsonBody(t, resp.Body.Bytes())
	assert.Equal(t, me.UserID.String(), body["id"])
	assert.NotContains(t, body, "passwordHash")
	assert.NotContains(t, resp.Body.String(), "secret")
}

func TestAdminCreateUser(t *testing.T) {
	t.Parallel()

	dept := uuid.New()

	t.Run("happy_path", func(t *testing.T) {
		t.Parallel()

		api := newAPI(t)
		v1.RegisterAdminRoutes(api, &mockAuthService{
			registerFunc: func(_ context.Context, in auth.NewUser) (*domain.User, error) {
				assert.Equal(t, "clerk@parks.city.gov", in.Email)
				assert.Equal(t, domain.RoleClientDept, in.Role)
				assert.Equal(t, &dept, in.DepartmentID)
				assert.Empty(t, in.Password)
				return &domain.User{ID: uuid.New(), Email: in.Email, Role: in.Role, DepartmentID: in.DepartmentID, Active: true}, nil
			},
		})

		resp := api.Post("/admin/users", map[string]any{
			"email":        "clerk@parks.city.gov",
			"name":         "Parks Clerk",
			"role":         "CLIENT_DEPT",
			"departmentId": dept.String(),
		})
		require.Equal(t, http.StatusCreated, resp.Code)
		assert.Equal(t, true, jsonBody(t, resp.Body.Bytes())["active"])
	})

	t.Run("duplicate_email", func(t *testing.T) {
		t.Parallel()

		api := newAPI(t)
		v1.RegisterAdminRoutes(api, &mockAuthService{
			registerFunc: func(context.Context, auth.NewUser) (*domain.User, error) {
				return nil, auth.ErrUserAlreadyExists
			},
		})

		resp := api.Post("/admin/users", map[string]any{"email": "a@city.gov", "name": "A", "role": "ATTORNEY"})
		assert.Equal(t, http.StatusConflict, resp.Code)
	})

	t.Run("unknown_role", func(t *testing.T) {
		t.Parallel()

		api := newAPI(t)
		v1.RegisterAdminRoutes(api, &mockAuthService{})

		resp := api.Post("/admin/users", map[string]any{"email": "a@city.gov", "name": "A", "role": "JUDGE"})
		assert.Equal(t, http.StatusBadRequest, resp.Code)
	})
}

func TestAdminUpdateUser(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	api := newAPI(t)
	v1.RegisterAdminRoutes(api, &mockAuthService{
		updateUserFunc: func(_ context.Context, id uuid.UUID, upd auth.UserUpdate) (*domain.User, error) {
			assert.Equal(t, userID, id)
			assert.True(t, upd.Active.Set)
			assert.False(t, upd.Active.Value)
			assert.True(t, upd.SlackUserID.HasValue())
			assert.Equal(t, "U024BE7LH", upd.SlackUserID.Value)
			assert.False(t, upd.Role.Set)
			return &domain.User{ID: id, SlackUserID: upd.SlackUserID.Value}, nil
		},
	})

	resp := api.Patch("/admin/users/"+userID.String(), map[string]any{
		"active":      false,
		"slackUserId": "U024BE7LH",
	})
	require.Equal(t, http.StatusOK, resp.Code)

	var body domain.User
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.False(t, body.Active)
	assert.Equal(t, "U024BE7LH", body.SlackUserID)
}

func TestAdminListUsers(t *testing.T) {
	t.Parallel()

	api := newAPI(t)
	v1.RegisterAdminRoutes(api, &mockAuthService{
		listUsersFunc: func(context.Context) ([]*domain.User, error) { return nil, nil },
	})

	resp := api.Get("/admin/users")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"users":[]}`, resp.Body.String())
}
