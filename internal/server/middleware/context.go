package middleware

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/citylaw/docket/internal/access"
	"github.com/citylaw/docket/internal/domain"
)

type contextKey string

const (
	ContextKeyUserID       contextKey = "user_id"
	ContextKeyUserRole     contextKey = "role"
	ContextKeyDepartmentID contextKey = "department_id"
)

func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	v, ok := ctx.Value(ContextKeyUserID).(uuid.UUID)
	return v, ok
}

func RoleFromContext(ctx context.Context) (domain.Role, bool) {
	v, ok := ctx.Value(ContextKeyUserRole).(domain.Role)
	return v, ok
}

func DepartmentIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	v, ok := ctx.Value(ContextKeyDepartmentID).(uuid.UUID)
	return v, ok && v != uuid.Nil
}

// WithPrincipal stores p in ctx under the keys the accessors read. A missing
// department is stored as uuid.Nil so it shadows any earlier value.
func WithPrincipal(ctx context.Context, p access.Principal) context.Context {
	dept := uuid.Nil
	if p.DepartmentID != nil {
		dept = *p.DepartmentID
	}
	ctx = context.WithValue(ctx, ContextKeyUserID, p.UserID)
	ctx = context.WithValue(ctx, ContextKeyUserRole, p.Role)
	return context.WithValue(ctx, ContextKeyDepartmentID, dept)
}

// PrincipalFromContext rebuilds the caller set by Auth.
func PrincipalFromContext(ctx context.Context) (access.Principal, bool) {
	userID, ok := UserIDFromContext(ctx)
	if !ok || userID == uuid.Nil {
		return access.Principal{}, false
	}
	role, ok := RoleFromContext(ctx)
	if !ok {
		return access.Principal{}, false
	}
	p := access.Principal{UserID: userID, Role: role}
	if dept, ok := DepartmentIDFromContext(ctx); ok {
		p.DepartmentID = &dept
	}
	return p, true
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
