package whatsapp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/EzzalddeenAli/recticket/config"
	"github.com/EzzalddeenAli/recticket/models"
	"github.com/EzzalddeenAli/recticket/store"
)

// Gateway 会话网关的 HTTP 客户端，所有请求都受 timeout 约束
type Gateway struct {
	baseURL    string
	token      string
	timeout    time.Duration
	httpClient *http.Client
}

func NewGateway(cfg config.ConnectorConfig, httpClient *http.Client) (*Gateway, error) {
	if cfg.GatewayURL == "" {
		return nil, errors.New("connector.gateway_url is required")
	}
	if _, err := url.Parse(cfg.GatewayURL); err != nil {
		return nil, fmt.Errorf("invalid connector.gateway_url %q: %w", cfg.GatewayURL, err)
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Gateway{
		baseURL:    strings.TrimRight(cfg.GatewayURL, "/"),
		token:      cfg.Token,
		timeout:    cfg.Timeout,
		httpClient: httpClient,
	}, nil
}

// Session 返回指定会话的 Client
func (g *Gateway) Session(name string) Client {
	return &session{gateway: g, name: name}
}

type session struct {
	gateway *Gateway
	name    string
}

func (s *session) path(number, suffix string) string {
	return "/sessions/" + url.PathEscape(s.name) + "/contacts/" + url.PathEscape(JID(number)) + suffix
}

func (s *session) IsRegisteredUser(ctx context.Context, number string) (bool, error) {
	var resp struct {
		Registered bool `json:"registered"`
	}
	if err := s.gateway.get(ctx, s.path(number, "/registered"), &resp); err != nil {
		return false, err
	}
	return resp.Registered, nil
}

func (s *session) GetProfilePicURL(ctx context.Context, number string) (string, error) {
	var resp struct {
		URL string `json:"url"`
	}
	if err := s.gateway.get(ctx, s.path(number, "/profile-pic"), &resp); err != nil {
		return "", err
	}
	return resp.URL, nil
}

func (s *session) GetContacts(ctx context.Context) ([]PhoneContact, error) {
	var resp struct {
		Contacts []PhoneContact `json:"contacts"`
	}
	if err := s.gateway.get(ctx, "/sessions/"+url.PathEscape(s.name)+"/contacts", &resp); err != nil {
		return nil, err
	}
	return resp.Contacts, nil
}

func (g *Gateway) get(ctx context.Context, path string, out interface{}) error {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if g.token != "" {
		req.Header.Set("Authorization", "Bearer "+g.token)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: read response: %v", ErrUnavailable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: GET %s returned %d", ErrUnavailable, path, resp.StatusCode)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}
	return nil
}

// GatewayProvider 默认会话来自数据库，请求走网关
type GatewayProvider struct {
	sessions SessionFinder
	gateway  *Gateway
}

func NewGatewayProvider(sessions SessionFinder, gateway *Gateway) *GatewayProvider {
	return &GatewayProvider{sessions: sessions, gateway: gateway}
}

func (p *GatewayProvider) Default(ctx context.Context) (*models.Whatsapp, Client, error) {
	wa, err := p.sessions.FindDefault(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil, ErrNoDefault
	}
	if err != nil {
		return nil, nil, err
	}
	return wa, p.gateway.Session(wa.Name), nil
}
