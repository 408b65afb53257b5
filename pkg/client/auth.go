package client

import (
	"encoding/json"
	"fmt"

	"labslot/pkg/model"
)

type AuthClient struct {
	httpClient *HttpClient
}

func NewAuthClient(baseURL string) *AuthClient {
	return &AuthClient{
		httpClient: NewHttpClient(baseURL),
	}
}

func (c *AuthClient) Register(creds *model.Credentials) (*Response, error) {
	return c.httpClient.POST("/api/v1/auth/register", creds)
}

func (c *AuthClient) Login(creds *model.Credentials) (*Response, error) {
	return c.httpClient.POST("/api/v1/auth/login", creds)
}

func (c *AuthClient) Logout(token string) (*Response, error) {
	return c.httpClient.WithToken(token).POST("/api/v1/auth/logout", nil)
}

func (c *AuthClient) Me(token string) (*Response, error) {
	return c.httpClient.WithToken(token).GET("/api/v1/auth/me")
}

// DecodeLogin extracts the session token and user from a login response.
func (c *AuthClient) DecodeLogin(resp *Response) (string, *model.User, error) {
	var wrapper struct {
		Data struct {
			Token string          `json:"token"`
			User  json.RawMessage `json:"user"`
		} `json:"data"`
	}

	if err := json.Unmarshal(resp.Body, &wrapper); err != nil {
		return "", nil, fmt.Errorf("could not decode login wrapper: %w", err)
	}

	var user model.User
	if err := json.Unmarshal(wrapper.Data.User, &user); err != nil {
		return "", nil, fmt.Errorf("could not decode login user: %w", err)
	}

	return wrapper.Data.Token, &user, nil
}
