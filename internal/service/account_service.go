package service

import (
	"authserver/internal/apperror"
	"authserver/internal/auth"
	"authserver/internal/avatar"
	"authserver/internal/entity/common"
	"authserver/internal/entity/converter"
	entity "authserver/internal/entity/db"
	"authserver/internal/entity/dto"
	"authserver/internal/model"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	defaultResolveTimeout = 15 * time.Second
	defaultRemoveTimeout  = 5 * time.Second
)

// TokenIssuer 为用户签发认证令牌
type TokenIssuer interface {
	GenerateToken(user *entity.User) (string, time.Time, error)
}

// AvatarResolver 负责头像的获取、存储与删除
type AvatarResolver interface {
	StoreUpload(ctx context.Context, user *entity.User, upload avatar.Upload) (string, error)
	ResolveForNewUser(ctx context.Context, user *entity.User) avatar.Resolution
	Remove(ctx context.Context, user *entity.User)
	URLFor(ref string) string
}

// Options 账户服务配置
type Options struct {
	// DefaultAvatar 头像解析失败时使用的引用
	DefaultAvatar string
	// ResolveTimeout 创建用户时头像解析的总时限
	ResolveTimeout time.Duration
	// RemoveTimeout 删除头像对象的时限
	RemoveTimeout time.Duration
}

// AccountService 账户服务，是修改用户状态的唯一入口
type AccountService struct {
	repo        model.Repository
	tokens      TokenIssuer
	avatars     AvatarResolver
	credentials auth.CredentialPolicy
	opts        Options

	// 同一用户的修改操作串行执行
	users  *keyedMutex[uint]
	emails *keyedMutex[string]
	// 删除管理员时持有，保证管理员计数与删除之间不被其他删除插入
	admins sync.Mutex
}

// NewAccountService 创建账户服务实例
func NewAccountService(repo model.Repository, tokens TokenIssuer, avatars AvatarResolver, credentials auth.CredentialPolicy, opts Options) *AccountService {
	if credentials == nil {
		credentials = auth.PlainCredentials{}
	}
	if strings.TrimSpace(opts.DefaultAvatar) == "" {
		opts.DefaultAvatar = "default-avatar.jpg"
	}
	if opts.ResolveTimeout <= 0 {
		opts.ResolveTimeout = defaultResolveTimeout
	}
	if opts.RemoveTimeout <= 0 {
		opts.RemoveTimeout = defaultRemoveTimeout
	}
	return &AccountService{
		repo:        repo,
		tokens:      tokens,
		avatars:     avatars,
		credentials: credentials,
		opts:        opts,
		users:       newKeyedMutex[uint](),
		emails:      newKeyedMutex[string](),
	}
}

// Insert 创建用户并为其解析头像
//
// 邮箱已存在时返回 Conflict。头像解析失败不会导致创建失败，此时使用默认头像。
// 角色不随创建写入，通过 AddRole 授予。
func (s *AccountService) Insert(ctx context.Context, candidate *entity.User) (*entity.User, error) {
	if candidate == nil {
		return nil, apperror.Invalid("user is required")
	}
	email := strings.TrimSpace(candidate.Email)
	name := strings.TrimSpace(candidate.Name)
	if email == "" {
		return nil, apperror.Invalid("email is required")
	}
	if name == "" {
		return nil, apperror.Invalid("name is required")
	}

	unlock := s.emails.Lock(email)
	defer unlock()

	existing, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	if existing != nil {
		return nil, apperror.Conflict("user with email %s already exists", email)
	}

	credential, err := s.credentials.Prepare(candidate.Password)
	if err != nil {
		return nil, apperror.Invalid("invalid credential: %v", err)
	}

	user := &entity.User{
		Email:    email,
		Password: credential,
		Name:     name,
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperror.Conflict("user with email %s already exists", email)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	resolveCtx, cancel := context.WithTimeout(ctx, s.opts.ResolveTimeout)
	resolution := s.avatars.ResolveForNewUser(resolveCtx, user)
	cancel()

	user.Avatar = s.opts.DefaultAvatar
	if resolution.Resolved() {
		user.Avatar = resolution.Ref
	}
	if err := s.repo.SaveUser(ctx, user); err != nil {
		s.rollbackInsert(ctx, user, resolution)
		return nil, fmt.Errorf("save user avatar: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"user_id": user.ID,
		"avatar":  user.Avatar,
		"source":  resolution.Source,
	}).Info("user inserted")
	return user, nil
}

// Update 修改用户名称
//
// 名称未变化时返回 (nil, nil)，不写库。
func (s *AccountService) Update(ctx context.Context, id uint, name string) (*entity.User, error) {
	unlock := s.users.Lock(id)
	defer unlock()

	user, err := s.loadUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperror.NotFound(id)
	}
	if user.Name == name {
		return nil, nil
	}
	if strings.TrimSpace(name) == "" {
		return nil, apperror.Invalid("name is required")
	}

	user.Name = name
	if err := s.repo.SaveUser(ctx, user); err != nil {
		return nil, fmt.Errorf("save user: %w", err)
	}
	return user, nil
}

// FindAll 按名称排序返回全部用户
func (s *AccountService) FindAll(ctx context.Context, dir common.SortDir) ([]entity.User, error) {
	users, err := s.repo.ListUsers(ctx, dir)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// FindByRole 返回拥有指定角色的用户
func (s *AccountService) FindByRole(ctx context.Context, roleName string) ([]entity.User, error) {
	users, err := s.repo.ListUsersByRole(ctx, strings.TrimSpace(roleName))
	if err != nil {
		return nil, fmt.Errorf("list users by role: %w", err)
	}
	return users, nil
}

// FindByID 按 ID 查询用户，不存在时返回 NotFound
func (s *AccountService) FindByID(ctx context.Context, id uint) (*entity.User, error) {
	user, err := s.loadUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperror.NotFound(id)
	}
	return user, nil
}

// Delete 删除用户及其头像
//
// 用户不存在时返回 false。不允许删除最后一个管理员。
func (s *AccountService) Delete(ctx context.Context, id uint) (bool, error) {
	unlock := s.users.Lock(id)
	defer unlock()

	user, err := s.loadUser(ctx, id)
	if err != nil {
		return false, err
	}
	if user == nil {
		return false, nil
	}

	if user.HasRole(entity.RoleAdmin) {
		s.admins.Lock()
		defer s.admins.Unlock()

		admins, err := s.repo.CountUsersByRole(ctx, entity.RoleAdmin)
		if err != nil {
			return false, fmt.Errorf("count administrators: %w", err)
		}
		if admins <= 1 {
			return false, apperror.BusinessRule("cannot delete last administrator")
		}
	}

	s.removeAvatar(ctx, user)

	if err := s.repo.DeleteUser(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("delete user: %w", err)
	}

	logrus.WithField("user_id", id).Info("user deleted")
	return true, nil
}

// AddRole 为用户授予角色
//
// 已拥有该角色时返回 false；角色不存在时返回 Invalid。
func (s *AccountService) AddRole(ctx context.Context, id uint, roleName string) (bool, error) {
	unlock := s.users.Lock(id)
	defer unlock()

	user, err := s.loadUser(ctx, id)
	if err != nil {
		return false, err
	}
	if user == nil {
		return false, apperror.NotFound(id)
	}

	roleName = strings.TrimSpace(roleName)
	if user.HasRole(roleName) {
		return false, nil
	}

	role, err := s.repo.GetRoleByName(ctx, roleName)
	if err != nil {
		return false, fmt.Errorf("find role: %w", err)
	}
	if role == nil {
		return false, apperror.Invalid("invalid role: %s", roleName)
	}

	if err := s.repo.AddUserRole(ctx, user, role); err != nil {
		return false, fmt.Errorf("add role: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"user_id": id,
		"role":    roleName,
	}).Info("granted role")
	return true, nil
}

// Login 校验凭证并签发令牌
//
// 邮箱不存在或凭证不匹配时返回 (nil, nil)。
func (s *AccountService) Login(ctx context.Context, email, credential string) (*dto.LoginResult, error) {
	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	if user == nil || !s.credentials.Matches(user.Password, credential) {
		return nil, nil
	}

	token, expiresAt, err := s.tokens.GenerateToken(user)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	view, err := s.ToView(user)
	if err != nil {
		return nil, err
	}

	logrus.WithField("user_id", user.ID).Info("user logged in")
	return &dto.LoginResult{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      view,
	}, nil
}

// SaveAvatar 保存用户上传的头像并更新用户记录
func (s *AccountService) SaveAvatar(ctx context.Context, id uint, upload avatar.Upload) (*entity.User, error) {
	unlock := s.users.Lock(id)
	defer unlock()

	user, err := s.loadUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperror.NotFound(id)
	}

	ref, err := s.avatars.StoreUpload(ctx, user, upload)
	if err != nil {
		return nil, err
	}
	user.Avatar = ref
	if err := s.repo.SaveUser(ctx, user); err != nil {
		return nil, fmt.Errorf("save user avatar: %w", err)
	}
	return user, nil
}

// DeleteAvatar 删除已存储的头像对象
//
// 用户记录中的头像引用保持不变。用户不存在时返回 false。
func (s *AccountService) DeleteAvatar(ctx context.Context, id uint) (bool, error) {
	unlock := s.users.Lock(id)
	defer unlock()

	user, err := s.loadUser(ctx, id)
	if err != nil {
		return false, err
	}
	if user == nil {
		return false, nil
	}
	s.removeAvatar(ctx, user)
	return true, nil
}

// ToView 构造用户只读视图，用户必须已持久化
func (s *AccountService) ToView(user *entity.User) (dto.UserView, error) {
	if !user.Persisted() {
		return dto.UserView{}, errors.New("cannot project an unpersisted user")
	}
	ref := user.Avatar
	if ref == "" {
		ref = s.opts.DefaultAvatar
	}
	return converter.UserToView(user, s.avatars.URLFor(ref)), nil
}

// ToViews 批量构造用户视图
func (s *AccountService) ToViews(users []entity.User) ([]dto.UserView, error) {
	views := make([]dto.UserView, 0, len(users))
	for i := range users {
		view, err := s.ToView(&users[i])
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}
	return views, nil
}

// EnsureAdmin 在没有任何管理员时创建（或提升）一个管理员账户
//
// 已存在管理员时返回 (nil, nil)。
func (s *AccountService) EnsureAdmin(ctx context.Context, email, credential, name string) (*entity.User, error) {
	admins, err := s.repo.CountUsersByRole(ctx, entity.RoleAdmin)
	if err != nil {
		return nil, fmt.Errorf("count administrators: %w", err)
	}
	if admins > 0 {
		return nil, nil
	}

	user, err := s.repo.GetUserByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	if user == nil {
		user, err = s.Insert(ctx, &entity.User{Email: email, Password: credential, Name: name})
		if err != nil {
			return nil, err
		}
	}

	if _, err := s.AddRole(ctx, user.ID, entity.RoleAdmin); err != nil {
		return nil, err
	}
	return s.FindByID(ctx, user.ID)
}

func (s *AccountService) loadUser(ctx context.Context, id uint) (*entity.User, error) {
	if id == 0 {
		return nil, nil
	}
	user, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

// rollbackInsert 撤销未完成的创建：删除用户记录及已解析的头像对象
func (s *AccountService) rollbackInsert(ctx context.Context, user *entity.User, resolution avatar.Resolution) {
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.RemoveTimeout)
	defer cancel()

	log := logrus.WithField("user_id", user.ID)
	if resolution.Resolved() {
		s.avatars.Remove(cleanupCtx, user)
	}
	if err := s.repo.DeleteUser(cleanupCtx, user); err != nil {
		log.WithError(err).Warn("failed to roll back user insert")
		return
	}
	log.Warn("rolled back user insert")
}

func (s *AccountService) removeAvatar(ctx context.Context, user *entity.User) {
	removeCtx, cancel := context.WithTimeout(ctx, s.opts.RemoveTimeout)
	defer cancel()
	s.avatars.Remove(removeCtx, user)
}
