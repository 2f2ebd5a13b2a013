// internal/app/bootstrap/appconfig.go
package bootstrap

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). WAFFLE's CoreConfig covers
// framework-level settings (ports, TLS, logging, CORS); AppConfig is
// everything specific to LedgerHub.
type AppConfig struct {
	// MongoDB connection configuration. The database is optional: when
	// unreachable the service runs in local-only mode and every session
	// is served from the embedded local store.
	MongoURI         string
	MongoDatabase    string
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Session management configuration
	SessionKey    string // Secret key for signing session and guest cookies
	SessionDomain string // Cookie domain (blank means current host)

	// Local storage configuration
	LocalStorePath string // SQLite file backing guest/offline data

	// Google OAuth configuration
	GoogleClientID     string
	GoogleClientSecret string

	// Base URL for OAuth callbacks
	BaseURL string // e.g., "https://ledgerhub.example.com" or "http://localhost:3000"
}
