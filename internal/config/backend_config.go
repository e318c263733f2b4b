package config

type BackendConfig interface {
	GetIdentityToolkitAPIKey() string
	GetIdentityToolkitURL() string
}

type Backend struct{}

var _ BackendConfig = Backend{}

// GetIdentityToolkitAPIKey returns the web API key. Empty selects the in-memory backend.
func (Backend) GetIdentityToolkitAPIKey() string {
	return GetEnv("IDENTITY_TOOLKIT_API_KEY", "")
}

// GetIdentityToolkitURL allows pointing at a local auth emulator,
// e.g. http://127.0.0.1:9099/identitytoolkit.googleapis.com/v1
func (Backend) GetIdentityToolkitURL() string {
	return GetEnv("IDENTITY_TOOLKIT_URL", "https://identitytoolkit.googleapis.com/v1")
}
