package config

type ProviderConfig interface {
	GetRedirectURL() string
	GetGoogleClientID() string
	GetGoogleClientSecret() string
	GetGoogleIssuer() string
	GetFacebookClientID() string
	GetFacebookClientSecret() string
}

type Providers struct{}

var _ ProviderConfig = Providers{}

// GetRedirectURL is the loopback URL registered with every social provider.
func (Providers) GetRedirectURL() string {
	return GetEnv("REDIRECT_URL", "http://127.0.0.1:8085/callback")
}

func (Providers) GetGoogleClientID() string {
	return GetEnv("GOOGLE_CLIENT_ID", "")
}

func (Providers) GetGoogleClientSecret() string {
	return GetEnv("GOOGLE_CLIENT_SECRET", "")
}

func (Providers) GetGoogleIssuer() string {
	return GetEnv("GOOGLE_ISSUER", "https://accounts.google.com")
}

func (Providers) GetFacebookClientID() string {
	return GetEnv("FACEBOOK_CLIENT_ID", "")
}

func (Providers) GetFacebookClientSecret() string {
	return GetEnv("FACEBOOK_CLIENT_SECRET", "")
}
