package apitest

import (
	"context"
	"testing"

	"github.com/Urientropy/centavo/apiclient"
	"github.com/Urientropy/centavo/auth"
	"github.com/Urientropy/centavo/sessions"
	"github.com/prometheus/client_golang/prometheus"
)

// Test account created by Login.
const (
	Email     = "ana@example.com"
	Password  = "s3cret-pass"
	FirstName = "Ana"
)

// Login creates the test account, signs in through a fresh auth.Service with
// in-memory storage and returns the service. The client gets its own
// metrics registry.
func (s *Server) Login(t testing.TB, options ...auth.ServiceOption) *auth.Service {
	t.Helper()

	if _, exists := s.users.byEmail(Email); !exists {
		s.AddUser(Email, Password, FirstName)
	}

	options = append([]auth.ServiceOption{
		auth.WithClientOptions(apiclient.WithRegisterer(prometheus.NewRegistry())),
	}, options...)

	svc, err := auth.NewService(context.Background(), s.BaseURL(), sessions.NewInMemoryRepo(), auth.NewRouter(auth.RouteLogin), options...)
	if err != nil {
		t.Fatalf("apitest.Login: %v", err)
	}
	if err := svc.Login(context.Background(), auth.Credentials{Email: Email, Password: Password}); err != nil {
		t.Fatalf("apitest.Login: %v", err)
	}
	return svc
}
