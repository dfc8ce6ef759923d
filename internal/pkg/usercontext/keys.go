package usercontext

// Shared Locals/session keys used across controllers and middlewares
const (
	AuthKey          = "authenticated"
	KeySubscriberID  = "subscriber_id"
	KeyEmail         = "email"
	KeyFromProtected = "from_protected"
)
