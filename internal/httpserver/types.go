package httpserver

// Invalidation scopes reported by /cache/clear
const (
	ScopeCluster = "cluster"
	ScopeLocal   = "local"
)

// DispatchResponse wraps a dispatch result
type DispatchResponse struct {
	Success bool        `json:"success"`
	Result  interface{} `json:"result,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// ClearCacheRequest names the cache keys to invalidate
type ClearCacheRequest struct {
	Keys []string `json:"keys"`
}

// ClearCacheResponse reports an accepted invalidation
type ClearCacheResponse struct {
	Success bool   `json:"success"`
	Keys    int    `json:"keys"`
	Scope   string `json:"scope"`
}
