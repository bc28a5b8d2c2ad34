package contextkeys

// Ключи gin.Context, которые выставляет AuthMiddleware
const (
	UserIDKey   = "userID"
	RoleKey     = "role"
	UserNameKey = "userName"
	RequestKey  = "request_id"
)
