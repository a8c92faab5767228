package client

import (
	"context"
	"net/http"

	"github.com/zidesign/catalog/types"
)

// Auth is the identity provider client for the auth endpoint.
type Auth struct {
	transport
	url string
}

func NewAuth(url string, httpClient *http.Client) *Auth {
	if httpClient == nil {
		httpClient = NewHTTPClient(0)
	}
	return &Auth{transport: transport{http: httpClient}, url: url}
}

type authRequest struct {
	Action   string  `json:"action"`
	Email    string  `json:"email,omitempty"`
	Name     *string `json:"name,omitempty"`
	Password string  `json:"password,omitempty"`
	UserID   string  `json:"user_id,omitempty"`
	Bio      *string `json:"bio,omitempty"`
	Avatar   *string `json:"avatar,omitempty"`
}

func (a *Auth) Register(ctx context.Context, in types.RegisterInput) (types.Session, error) {
	var session types.Session
	err := a.do(ctx, http.MethodPost, a.url, "", authRequest{
		Action:   "register",
		Email:    in.Email,
		Name:     &in.Name,
		Password: in.Password,
	}, &session)
	return session, err
}

func (a *Auth) Login(ctx context.Context, in types.LoginInput) (types.Session, error) {
	var session types.Session
	err := a.do(ctx, http.MethodPost, a.url, "", authRequest{
		Action:   "login",
		Email:    in.Email,
		Password: in.Password,
	}, &session)
	return session, err
}

// UpdateProfile edits the profile of userID with the owner's token.
func (a *Auth) UpdateProfile(ctx context.Context, token, userID string, update types.ProfileUpdate) (types.User, error) {
	var session types.Session
	err := a.do(ctx, http.MethodPost, a.url, token, authRequest{
		Action: "update_profile",
		UserID: userID,
		Name:   update.Name,
		Bio:    update.Bio,
		Avatar: update.Avatar,
	}, &session)
	return session.User, err
}
