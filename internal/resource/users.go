package resource

import (
	"context"
	"net/http"
	"net/url"

	"github.com/vasiliy-maslov/rental-admin-console/internal/apiclient"
	"github.com/vasiliy-maslov/rental-admin-console/internal/paging"
)

type User struct {
	ID      int64  `json:"id"`
	FIN     string `json:"fin"`
	Name    string `json:"name"`
	Surname string `json:"surname"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Status  string `json:"status,omitempty"`
}

type UserInput struct {
	FIN      string `json:"fin"`
	Name     string `json:"name"`
	Surname  string `json:"surname"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password,omitempty"`
}

type UserService struct {
	client *apiclient.Client
}

func NewUserService(c *apiclient.Client) *UserService {
	return &UserService{client: c}
}

// Search pages are 0-based.
func (s *UserService) Search(ctx context.Context, q paging.Query) (paging.Page[User], error) {
	return apiclient.Get[paging.Page[User]](ctx, s.client, "/users/search", apiclient.WithQuery(pageParams(q)))
}

func (s *UserService) Get(ctx context.Context, id int64) (User, error) {
	return apiclient.Get[User](ctx, s.client, idPath("/users", id, ""))
}

func (s *UserService) Create(ctx context.Context, in UserInput) (User, error) {
	return apiclient.Send[User](ctx, s.client, http.MethodPost, "/users", in)
}

func (s *UserService) Update(ctx context.Context, id int64, in UserInput) (User, error) {
	return apiclient.Send[User](ctx, s.client, http.MethodPut, idPath("/users", id, ""), in)
}

func (s *UserService) Delete(ctx context.Context, id int64) error {
	return s.client.Do(ctx, http.MethodDelete, idPath("/users", id, ""), nil)
}

// FindByFIN looks customers up by national ID. The backend may return several matches.
func (s *UserService) FindByFIN(ctx context.Context, fin string) ([]User, error) {
	return apiclient.Get[[]User](ctx, s.client, "/users/fin/"+url.PathEscape(fin))
}
