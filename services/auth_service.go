package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/EzzalddeenAli/recticket/config"
	"github.com/EzzalddeenAli/recticket/models"
	"github.com/EzzalddeenAli/recticket/store"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	tokenAccess  = "access"
	tokenRefresh = "refresh"
)

type AuthService struct {
	users         UserStore
	jwtSecret     []byte
	tokenExpiry   time.Duration
	refreshExpiry time.Duration
	now           func() time.Time
}

func NewAuthService(users UserStore, cfg *config.AuthConfig) *AuthService {
	return &AuthService{
		users:         users,
		jwtSecret:     []byte(cfg.JWTSecret),
		tokenExpiry:   time.Duration(cfg.TokenExpiry) * time.Hour,
		refreshExpiry: time.Duration(cfg.RefreshExpiry) * time.Hour,
		now:           time.Now,
	}
}

type Claims struct {
	UserID  uint   `json:"user_id"`
	Email   string `json:"email,omitempty"`
	Profile string `json:"profile,omitempty"`
	Kind    string `json:"kind"`
	jwt.RegisteredClaims
}

func (s *AuthService) sign(claims *Claims, ttl time.Duration) (string, error) {
	now := s.now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
}

func (s *AuthService) GenerateTokens(user *models.User) (*models.AuthResponse, error) {
	access, err := s.sign(&Claims{
		UserID:  user.ID,
		Email:   user.Email,
		Profile: user.Profile,
		Kind:    tokenAccess,
	}, s.tokenExpiry)
	if err != nil {
		return nil, err
	}
	refresh, err := s.sign(&Claims{UserID: user.ID, Kind: tokenRefresh}, s.refreshExpiry)
	if err != nil {
		return nil, err
	}
	return &models.AuthResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int(s.tokenExpiry.Seconds()),
		User:         *user,
	}, nil
}

func (s *AuthService) parse(tokenString, kind string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Kind != kind {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ValidateToken 只接受 access token
func (s *AuthService) ValidateToken(tokenString string) (*Claims, error) {
	return s.parse(tokenString, tokenAccess)
}

// Authenticate 校验 token 并加载当前用户，用户已被删除时 token 失效
func (s *AuthService) Authenticate(ctx context.Context, tokenString string) (*models.User, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	user, err := s.users.FindByID(ctx, claims.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidToken
	}
	return user, err
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*models.AuthResponse, error) {
	user, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return s.GenerateTokens(user)
}

func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*models.AuthResponse, error) {
	claims, err := s.parse(refreshToken, tokenRefresh)
	if err != nil {
		return nil, err
	}
	user, err := s.users.FindByID(ctx, claims.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}
	return s.GenerateTokens(user)
}

// LoginByEmail OAuth 回调用：只允许已有账号登录，不自动注册
func (s *AuthService) LoginByEmail(ctx context.Context, email string) (*models.AuthResponse, error) {
	if email == "" {
		return nil, ErrNoLinkedAccount
	}
	user, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNoLinkedAccount
	}
	if err != nil {
		return nil, err
	}
	return s.GenerateTokens(user)
}
