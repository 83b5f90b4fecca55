package driven

// ConfigStore holds raw configuration values by key. Values keep the type
// the backing format decoded them as; callers coerce them.
type ConfigStore interface {
	// Get returns the value for key and whether it is set.
	Get(key string) (any, bool)

	// Set stores value under key and persists it.
	Set(key string, value any) error

	// Path names the backing location, for diagnostics.
	Path() string
}
