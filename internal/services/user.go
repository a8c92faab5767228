package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/zidesign/catalog/internal/metrics"
	"github.com/zidesign/catalog/pkg/validation"
	"github.com/zidesign/catalog/types"
)

const avatarURLPrefix = "https://api.dicebear.com/7.x/avataaars/svg?seed="

// ErrInvalidCredentials is returned when a password does not match.
var ErrInvalidCredentials = fmt.Errorf("%w: invalid credentials", types.ErrUnauthorized)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	UpdateProfile(ctx context.Context, id string, update types.ProfileUpdate) (types.User, error)
}

// UserService encapsulates account use-cases.
type UserService struct {
	repo        UserRepository
	adminEmails map[string]struct{}
	log         logrus.FieldLogger
	metrics     *metrics.Metrics
}

// NewUserService builds the service. Emails listed in adminEmails get
// the admin role when they register; nobody is promoted afterwards.
func NewUserService(repo UserRepository, adminEmails []string, log logrus.FieldLogger, m *metrics.Metrics) *UserService {
	admins := make(map[string]struct{}, len(adminEmails))
	for _, email := range adminEmails {
		admins[normalizeEmail(email)] = struct{}{}
	}
	return &UserService{repo: repo, adminEmails: admins, log: log, metrics: m}
}

func (s *UserService) GetByID(ctx context.Context, id string) (types.User, error) {
	return s.repo.GetByID(ctx, id)
}

// Register creates an account. A taken email yields types.ErrConflict.
func (s *UserService) Register(ctx context.Context, in types.RegisterInput) (types.User, error) {
	in.Email = normalizeEmail(in.Email)
	in.Name = strings.TrimSpace(in.Name)
	if err := validation.Struct(in); err != nil {
		return types.User{}, err
	}

	user := types.User{
		Email:  in.Email,
		Name:   in.Name,
		Role:   types.RoleUser,
		Avatar: DefaultAvatar(in.Email),
	}
	if _, ok := s.adminEmails[in.Email]; ok {
		if in.Password == "" {
			return types.User{}, fmt.Errorf("%w: admin accounts require a password", types.ErrValidation)
		}
		user.Role = types.RoleAdmin
	}
	if in.Password != "" {
		hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
		if err != nil {
			return types.User{}, fmt.Errorf("hash password: %w", err)
		}
		user.PasswordHash = string(hashed)
	}

	user, err := s.repo.Create(ctx, user)
	if err != nil {
		return types.User{}, err
	}

	if s.metrics != nil {
		s.metrics.Registrations.Inc()
	}
	s.log.WithFields(logrus.Fields{"user_id": user.ID, "role": user.Role.String()}).Info("user registered")
	return user, nil
}

// Login resolves an account by email. Accounts with a password also
// require it to match; admin accounts without one cannot sign in.
func (s *UserService) Login(ctx context.Context, in types.LoginInput) (types.User, error) {
	in.Email = normalizeEmail(in.Email)
	if err := validation.Struct(in); err != nil {
		return types.User{}, err
	}

	user, err := s.repo.GetByEmail(ctx, in.Email)
	if err != nil {
		s.countLogin("unknown")
		if errors.Is(err, types.ErrNotFound) {
			return types.User{}, fmt.Errorf("%w: no account for %s", types.ErrNotFound, in.Email)
		}
		return types.User{}, err
	}

	if user.PasswordHash == "" && user.IsAdmin() {
		s.countLogin("rejected")
		return types.User{}, ErrInvalidCredentials
	}
	if user.PasswordHash != "" {
		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
			s.countLogin("rejected")
			return types.User{}, ErrInvalidCredentials
		}
	}

	s.countLogin("ok")
	return user, nil
}

// UpdateProfile edits name, bio or avatar. Only the account owner may
// edit a profile and the role is never touched.
func (s *UserService) UpdateProfile(ctx context.Context, actor types.User, userID string, update types.ProfileUpdate) (types.User, error) {
	if strings.TrimSpace(userID) == "" {
		return types.User{}, fmt.Errorf("%w: user_id is required", types.ErrValidation)
	}
	if actor.ID != userID {
		return types.User{}, fmt.Errorf("%w: cannot edit another user's profile", types.ErrUnauthorized)
	}
	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if name == "" {
			return types.User{}, fmt.Errorf("%w: name must not be empty", types.ErrValidation)
		}
		update.Name = &name
	}
	return s.repo.UpdateProfile(ctx, userID, update)
}

func (s *UserService) countLogin(result string) {
	if s.metrics != nil {
		s.metrics.Logins.WithLabelValues(result).Inc()
	}
}

// DefaultAvatar returns the generated avatar URL for an email.
func DefaultAvatar(email string) string {
	return avatarURLPrefix + url.QueryEscape(email)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
