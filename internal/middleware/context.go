package middleware

import "context"

type contextKey string

const (
	UserKey contextKey = "user_name"
	RoleKey contextKey = "role"
)

// GetUser возвращает user_name из контекста (устанавливается SessionAuth).
func GetUser(ctx context.Context) string {
	v, _ := ctx.Value(UserKey).(string)
	return v
}

// GetRole возвращает роль пользователя из контекста (buyer/agent/owner).
func GetRole(ctx context.Context) string {
	v, _ := ctx.Value(RoleKey).(string)
	return v
}
