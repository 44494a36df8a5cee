package auth

// Known OAuth scopes used by the progression API.
const (
	ScopeProgressWrite = "progress:write"
	ScopeProgressRead  = "progress:read"
	ScopeProgressAdmin = "progress:admin"
)
