package core

// Configuration describes the third-party API client that is being authorized.
type Configuration struct {
	Server  ServerConfig `envPrefix:"SERVER_"`
	Client  ClientConfig `envPrefix:"CLIENT_"`
	Version string       `env:"API_VERSION" envDefault:"20141109"`
}

// ServerConfig holds the endpoints of the API provider.
type ServerConfig struct {
	OAuthBaseURL string `env:"OAUTH_BASE_URL" envDefault:"https://foursquare.com/oauth2/authenticate"`
	APIBaseURL   string `env:"API_BASE_URL"   envDefault:"https://api.foursquare.com/v2"`
}

// ClientConfig identifies the registered client application.
type ClientConfig struct {
	ID          string `env:"ID"`
	RedirectURL string `env:"REDIRECT_URL"`
}
