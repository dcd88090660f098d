package resource

import (
	"context"
	"net/http"

	"github.com/vasiliy-maslov/rental-admin-console/internal/apiclient"
)

type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type Profile struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Surname  string `json:"surname"`
	Email    string `json:"email"`
}

type LoginResponse struct {
	AccessToken string   `json:"accessToken"`
	User        Profile  `json:"user"`
	Permissions []string `json:"permissions"`
}

type Me struct {
	User        Profile  `json:"user"`
	Permissions []string `json:"permissions"`
}

type AuthService struct {
	client *apiclient.Client
}

func NewAuthService(c *apiclient.Client) *AuthService {
	return &AuthService{client: c}
}

func (s *AuthService) Login(ctx context.Context, creds Credentials) (LoginResponse, error) {
	return apiclient.Send[LoginResponse](ctx, s.client, http.MethodPost, "/auth/login", creds)
}

// Me reloads the profile and permissions of the caller bound to ctx.
func (s *AuthService) Me(ctx context.Context) (Me, error) {
	return apiclient.Get[Me](ctx, s.client, "/auth/me")
}
