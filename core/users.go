package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"laundry-api/models"
)

type UserService struct {
	db   *gorm.DB
	log  logrus.FieldLogger
	cost int
}

func NewUserService(db *gorm.DB, log logrus.FieldLogger) *UserService {
	return &UserService{db: db, log: log, cost: bcrypt.DefaultCost}
}

// WithHashCost overrides the bcrypt cost, tests use bcrypt.MinCost
func (s *UserService) WithHashCost(cost int) *UserService {
	s.cost = cost
	return s
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Phone    string
	Role     models.UserRole
}

func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	if !in.Role.Valid() {
		return nil, ErrInvalidRole
	}
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" || in.Password == "" {
		return nil, invalidInput("email and password are required")
	}
	db := s.db.WithContext(ctx)

	var count int64
	if err := db.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if count > 0 {
		return nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := models.User{
		Name:         in.Name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         in.Role,
		Phone:        in.Phone,
	}
	if err := db.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	s.log.WithFields(logrus.Fields{"user_id": user.ID, "role": user.Role}).Info("user registered")
	return &user, nil
}

// Authenticate checks credentials. Unknown emails and wrong passwords are
// indistinguishable to the caller.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).First(&user, "email = ?", strings.ToLower(strings.TrimSpace(email))).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return &user, nil
}

func (s *UserService) GetUser(ctx context.Context, actor Actor) (*models.User, error) {
	if actor.ID == "" {
		return nil, ErrUnauthorized
	}
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", actor.ID).Error; err != nil {
		return nil, notFoundOr(err, ErrUserNotFound, "load user")
	}
	return &user, nil
}

// ListUsers is admin only; role filters the result when set
func (s *UserService) ListUsers(ctx context.Context, actor Actor, role models.UserRole) ([]models.User, error) {
	if err := actor.require(models.RoleAdmin); err != nil {
		return nil, err
	}
	q := s.db.WithContext(ctx).Model(&models.User{})
	if role != "" {
		if !role.Valid() {
			return nil, ErrInvalidRole
		}
		q = q.Where("role = ?", role)
	}
	var users []models.User
	if err := q.Order("created_at desc").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// EnsureAdmin creates the administrator account unless a user with that
// email already exists. It returns the existing or created user.
func (s *UserService) EnsureAdmin(ctx context.Context, name, email, password string) (*models.User, error) {
	var existing models.User
	err := s.db.WithContext(ctx).First(&existing, "email = ?", strings.ToLower(strings.TrimSpace(email))).Error
	if err == nil {
		if existing.Role != models.RoleAdmin {
			return nil, fmt.Errorf("%w: %s is registered with role %s", ErrConflict, existing.Email, existing.Role)
		}
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("load admin: %w", err)
	}
	return s.Register(ctx, RegisterInput{Name: name, Email: email, Password: password, Role: models.RoleAdmin})
}
