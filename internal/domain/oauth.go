package domain

const ProviderGoogle = "google"

// OAuthProfile is the normalized identity an OAuth provider hands back
// after a successful code exchange.
type OAuthProfile struct {
	Provider   string
	ProviderID string
	Email      string
	Name       string
}
