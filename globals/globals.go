package globals

// Context keys
type ContextKey string

const UserIDKey ContextKey = "userId"
const IsAdminKey ContextKey = "isAdmin"

// JwtSecret is replaced from the JWT_SECRET environment variable at startup.
var JwtSecret = []byte("dev-only-secret")
