package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/EzzalddeenAli/recticket/events"
	"github.com/EzzalddeenAli/recticket/logger"
	"github.com/EzzalddeenAli/recticket/models"
	"github.com/EzzalddeenAli/recticket/query"
	"github.com/EzzalddeenAli/recticket/store"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"
)

type CreateUserInput struct {
	Name     string `json:"name" validate:"required,min=2,max=255"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=5"`
	Profile  string `json:"profile" validate:"omitempty,oneof=admin user"`
}

type UpdateUserInput struct {
	Name     *string `json:"name" validate:"omitempty,min=2,max=255"`
	Email    *string `json:"email" validate:"omitempty,email"`
	Password *string `json:"password" validate:"omitempty,min=5"`
	Profile  *string `json:"profile" validate:"omitempty,oneof=admin user"`
}

type UserList struct {
	Users   []models.User `json:"users"`
	Count   int64         `json:"count"`
	HasMore bool          `json:"hasMore"`
}

type UserService struct {
	users    UserStore
	settings SettingStore
}

func NewUserService(users UserStore, settings SettingStore) *UserService {
	return &UserService{users: users, settings: settings}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// List 仅管理员
func (s *UserService) List(ctx context.Context, caller *models.User, filter query.UserFilter, page query.Page) (*UserList, error) {
	if !caller.IsAdmin() {
		return nil, ErrForbidden
	}
	users, total, err := s.users.Search(ctx, filter.Predicate(), page)
	if err != nil {
		return nil, err
	}
	return &UserList{Users: users, Count: total, HasMore: page.HasMore(total, len(users))}, nil
}

// Get 管理员或本人
func (s *UserService) Get(ctx context.Context, caller *models.User, id uint) (*models.User, error) {
	if !caller.IsAdmin() && caller.ID != id {
		return nil, ErrForbidden
	}
	return s.find(ctx, id)
}

func (s *UserService) find(ctx context.Context, id uint) (*models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	return user, err
}

// Signup 公开注册，受 userCreation 设置控制，只能创建普通用户
func (s *UserService) Signup(ctx context.Context, in CreateUserInput) (*models.User, events.Outbox, error) {
	setting, err := s.settings.Get(ctx, models.SettingUserCreation)
	switch {
	case errors.Is(err, store.ErrNotFound):
	case err != nil:
		return nil, nil, fmt.Errorf("load %s setting: %w", models.SettingUserCreation, err)
	case setting.Value == models.SettingDisabled:
		return nil, nil, ErrSignupDisabled
	}
	in.Profile = models.ProfileUser
	return s.create(ctx, in)
}

// CreateByAdmin 管理员创建，可以指定 profile
func (s *UserService) CreateByAdmin(ctx context.Context, caller *models.User, in CreateUserInput) (*models.User, events.Outbox, error) {
	if !caller.IsAdmin() {
		return nil, nil, ErrForbidden
	}
	if in.Profile == "" {
		in.Profile = models.ProfileUser
	}
	return s.create(ctx, in)
}

// create 字段校验和邮箱唯一性检查并发进行，都通过后才写库
func (s *UserService) create(ctx context.Context, in CreateUserInput) (*models.User, events.Outbox, error) {
	in.Email = normalizeEmail(in.Email)

	var (
		validationErr error
		taken         bool
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		validationErr = validateStruct(in)
		return nil
	})
	g.Go(func() error {
		if in.Email == "" {
			return nil
		}
		var err error
		taken, err = s.users.EmailExists(gctx, in.Email, 0)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, fmt.Errorf("check email: %w", err)
	}
	if validationErr != nil {
		return nil, nil, validationErr
	}
	if taken {
		return nil, nil, ErrEmailTaken
	}

	hash, err := hashPassword(in.Password)
	if err != nil {
		return nil, nil, err
	}
	user := &models.User{
		Name:     strings.TrimSpace(in.Name),
		Email:    in.Email,
		Password: hash,
		Profile:  in.Profile,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, nil, ErrEmailTaken
		}
		return nil, nil, fmt.Errorf("create user: %w", err)
	}
	return user, events.Of(events.UserChanged(events.ActionCreate, user)), nil
}

// Update 仅管理员；唯一的管理员不能被降级
func (s *UserService) Update(ctx context.Context, caller *models.User, id uint, in UpdateUserInput) (*models.User, events.Outbox, error) {
	if !caller.IsAdmin() {
		return nil, nil, ErrForbidden
	}
	if err := validateStruct(in); err != nil {
		return nil, nil, err
	}
	target, err := s.find(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	if target.IsAdmin() && in.Profile != nil && *in.Profile != models.ProfileAdmin {
		admins, err := s.users.CountByProfile(ctx, models.ProfileAdmin)
		if err != nil {
			return nil, nil, err
		}
		if admins <= 1 {
			return nil, nil, ErrLastAdminProtected
		}
	}

	fields := make(map[string]interface{})
	if in.Name != nil {
		fields["name"] = strings.TrimSpace(*in.Name)
	}
	if in.Email != nil {
		email := normalizeEmail(*in.Email)
		if email != target.Email {
			taken, err := s.users.EmailExists(ctx, email, id)
			if err != nil {
				return nil, nil, err
			}
			if taken {
				return nil, nil, ErrEmailTaken
			}
		}
		fields["email"] = email
	}
	if in.Password != nil {
		hash, err := hashPassword(*in.Password)
		if err != nil {
			return nil, nil, err
		}
		fields["password"] = hash
	}
	if in.Profile != nil {
		fields["profile"] = *in.Profile
	}

	if err := s.users.Update(ctx, id, fields); err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return nil, nil, ErrUserNotFound
		case errors.Is(err, store.ErrDuplicate):
			return nil, nil, ErrEmailTaken
		}
		return nil, nil, fmt.Errorf("update user: %w", err)
	}

	user, err := s.find(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return user, events.Of(events.UserChanged(events.ActionUpdate, user)), nil
}

// Delete 仅管理员
// TODO: 删除唯一的管理员目前不拦截，确认产品需求后再决定是否与 Update 保持一致
func (s *UserService) Delete(ctx context.Context, caller *models.User, id uint) (events.Outbox, error) {
	if !caller.IsAdmin() {
		return nil, ErrForbidden
	}
	if _, err := s.find(ctx, id); err != nil {
		return nil, err
	}
	if err := s.users.Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("delete user: %w", err)
	}
	return events.Of(events.UserDeleted(id)), nil
}

// EnsureAdmin 数据库里还没有任何用户时创建初始管理员
func (s *UserService) EnsureAdmin(ctx context.Context, name, email, password string) error {
	if email == "" || password == "" {
		return nil
	}
	n, err := s.users.Count(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	if name == "" {
		name = "Administrator"
	}
	user, _, err := s.create(ctx, CreateUserInput{
		Name:     name,
		Email:    email,
		Password: password,
		Profile:  models.ProfileAdmin,
	})
	if err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}
	logger.WithContext(ctx).WithField("email", user.Email).Info("bootstrap admin created")
	return nil
}
