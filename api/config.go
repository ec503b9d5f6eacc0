// Package api provides the HTTP server for browsing the clustered
// timeline, training models, and managing session settings.
package api

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8080")
	ListenAddr string

	// TrainWindow is the default training and rendering window in hours.
	// Zero means DefaultWindowHours.
	TrainWindow int
}

// DefaultWindowHours is the timeline window used when a request names none.
const DefaultWindowHours = 24
