package config

import "time"

const DefaultPageSize = 6

type APIConfig interface {
	GetAPIBaseURL() string
	GetRequestTimeout() time.Duration
	GetPageSize() int
	GetCSRFEnabled() bool
	GetCSRFCookieName() string
}

type API struct {
	BaseURL        string        `env:"API_BASE_URL" env-default:"http://localhost:8000/api/v1" env-description:"base URL of the REST API"`
	RequestTimeout time.Duration `env:"API_TIMEOUT" env-default:"30s" env-description:"per request timeout"`
	PageSize       int           `env:"PAGE_SIZE" env-default:"6" env-description:"page size agreed with the server"`
	CSRFEnabled    bool          `env:"CSRF_ENABLED" env-default:"true" env-description:"send X-CSRFToken on mutating requests"`
	CSRFCookieName string        `env:"CSRF_COOKIE" env-default:"csrftoken" env-description:"cookie holding the anti-forgery token"`
}

var _ APIConfig = API{}

func (a API) GetAPIBaseURL() string {
	return a.BaseURL
}

func (a API) GetRequestTimeout() time.Duration {
	if a.RequestTimeout <= 0 {
		return 30 * time.Second
	}
	return a.RequestTimeout
}

func (a API) GetPageSize() int {
	if a.PageSize <= 0 {
		return DefaultPageSize
	}
	return a.PageSize
}

func (a API) GetCSRFEnabled() bool {
	return a.CSRFEnabled
}

func (a API) GetCSRFCookieName() string {
	if a.CSRFCookieName == "" {
		return "csrftoken"
	}
	return a.CSRFCookieName
}
