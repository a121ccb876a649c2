package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"

	"github.com/EzzalddeenAli/recticket/config"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/facebook"
	"golang.org/x/oauth2/github"
	"golang.org/x/oauth2/google"
)

const (
	googleUserInfoURL   = "https://www.googleapis.com/oauth2/v2/userinfo"
	githubUserInfoURL   = "https://api.github.com/user"
	facebookUserInfoURL = "https://graph.facebook.com/me?fields=id,name,email"
)

type oauthProvider struct {
	config      *oauth2.Config
	userInfoURL string
}

// OAuthService 第三方登录只用来确认邮箱，账号必须已经存在
type OAuthService struct {
	providers map[string]oauthProvider
}

type OAuthUserInfo struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Provider string `json:"provider"`
}

func newOAuthConfig(p config.OAuthProvider, endpoint oauth2.Endpoint) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     p.ClientID,
		ClientSecret: p.ClientSecret,
		RedirectURL:  p.RedirectURL,
		Scopes:       p.Scopes,
		Endpoint:     endpoint,
	}
}

func userInfoURL(p config.OAuthProvider, fallback string) string {
	if p.UserInfoURL != "" {
		return p.UserInfoURL
	}
	return fallback
}

func NewOAuthService(cfg *config.AuthConfig) *OAuthService {
	service := &OAuthService{providers: make(map[string]oauthProvider)}

	builtin := []struct {
		name     string
		provider config.OAuthProvider
		endpoint oauth2.Endpoint
		infoURL  string
	}{
		{"google", cfg.OAuth.Google, google.Endpoint, googleUserInfoURL},
		{"github", cfg.OAuth.GitHub, github.Endpoint, githubUserInfoURL},
		{"facebook", cfg.OAuth.Facebook, facebook.Endpoint, facebookUserInfoURL},
	}
	for _, b := range builtin {
		if b.provider.ClientID == "" {
			continue
		}
		service.providers[b.name] = oauthProvider{
			config:      newOAuthConfig(b.provider, b.endpoint),
			userInfoURL: userInfoURL(b.provider, b.infoURL),
		}
	}

	// 自定义 provider 必须配置 user_info_url
	for name, p := range cfg.OAuth.Custom {
		if p.ClientID == "" || p.UserInfoURL == "" {
			continue
		}
		service.providers[name] = oauthProvider{
			config: newOAuthConfig(p, oauth2.Endpoint{
				AuthURL:  p.AuthURL,
				TokenURL: p.TokenURL,
			}),
			userInfoURL: p.UserInfoURL,
		}
	}
	return service
}

func (s *OAuthService) provider(name string) (oauthProvider, error) {
	p, ok := s.providers[name]
	if !ok {
		return oauthProvider{}, fmt.Errorf("%w: %s", ErrUnsupportedProvider, name)
	}
	return p, nil
}

func (s *OAuthService) GetAuthURL(provider, state string) (string, error) {
	p, err := s.provider(provider)
	if err != nil {
		return "", err
	}
	return p.config.AuthCodeURL(state), nil
}

func (s *OAuthService) ExchangeCode(ctx context.Context, provider, code string) (*oauth2.Token, error) {
	p, err := s.provider(provider)
	if err != nil {
		return nil, err
	}
	return p.config.Exchange(ctx, code)
}

// GetUserInfo 用 token 调用 provider 的用户信息接口
func (s *OAuthService) GetUserInfo(ctx context.Context, provider string, token *oauth2.Token) (*OAuthUserInfo, error) {
	p, err := s.provider(provider)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.config.Client(ctx, token).Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s user info: %w", provider, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s user info: status %d", provider, resp.StatusCode)
	}

	var data map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("decode %s user info: %w", provider, err)
	}
	return parseUserInfo(provider, data), nil
}

func parseUserInfo(provider string, data map[string]interface{}) *OAuthUserInfo {
	str := func(key string) string {
		switch v := data[key].(type) {
		case string:
			return v
		case nil:
			return ""
		default:
			return fmt.Sprintf("%v", v)
		}
	}
	info := &OAuthUserInfo{
		ID:       str("id"),
		Email:    str("email"),
		Name:     str("name"),
		Provider: provider,
	}
	if info.ID == "" {
		info.ID = str("sub")
	}
	if info.Name == "" {
		info.Name = str("login")
	}
	return info
}

func (s *OAuthService) GetAvailableProviders() []string {
	providers := make([]string, 0, len(s.providers))
	for name := range s.providers {
		providers = append(providers, name)
	}
	sort.Strings(providers)
	return providers
}
