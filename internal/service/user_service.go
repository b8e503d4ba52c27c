package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/yamdb/yamdb-api/internal/models"
	"github.com/yamdb/yamdb-api/internal/permissions"
	"github.com/yamdb/yamdb-api/internal/repository"
	"github.com/yamdb/yamdb-api/internal/utils"
	"github.com/yamdb/yamdb-api/pkg/logger"
	"go.uber.org/zap"
)

const maxPersonNameLength = 150

// UserInput carries a partial profile write. Nil fields are left untouched.
type UserInput struct {
	Username  *string
	Email     *string
	FirstName *string
	LastName  *string
	Bio       *string
	Role      *string
}

type UserService struct {
	userRepo *repository.UserRepository
	auth     *AuthService
}

func NewUserService(userRepo *repository.UserRepository, auth *AuthService) *UserService {
	return &UserService{userRepo: userRepo, auth: auth}
}

func (s *UserService) List(ctx context.Context, search string, opts repository.ListOptions) ([]models.User, int64, error) {
	users, total, err := s.userRepo.ListUsers(ctx, search, opts)
	if err != nil {
		logger.Log.Error("Failed to list users", zap.Error(err))
		return nil, 0, err
	}
	return users, total, nil
}

func (s *UserService) Get(ctx context.Context, username string) (*models.User, error) {
	user, err := s.userRepo.GetUserByUsername(ctx, username)
	if err != nil {
		logger.Log.Error("Failed to get user",
			zap.String("username", username),
			zap.Error(err),
		)
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// Create registers an account on behalf of an admin and issues it a
// confirmation code. A delivery failure is logged but does not undo the account.
func (s *UserService) Create(ctx context.Context, actor *models.User, in UserInput) (*models.User, error) {
	user := &models.User{Role: models.RoleUser}

	ve := &ValidationError{}
	if in.Username == nil {
		ve.Add("username", "this field is required")
	}
	if in.Email == nil {
		ve.Add("email", "this field is required")
	}
	if ve.HasErrors() {
		return nil, ve
	}

	if err := s.apply(ctx, actor, user, in, true); err != nil {
		return nil, err
	}

	if err := s.userRepo.CreateUser(ctx, user); err != nil {
		if isDuplicateKey(err) {
			return nil, s.identityConflict(ctx, user)
		}
		logger.Log.Error("Failed to create user",
			zap.String("username", user.Username),
			zap.Error(err),
		)
		return nil, err
	}

	logger.Log.Info("User created by admin",
		zap.String("user_id", user.ID.String()),
		zap.String("username", user.Username),
		zap.String("role", string(user.Role)),
		zap.String("actor", actor.Username),
	)

	if err := s.auth.IssueConfirmationCode(ctx, user); err != nil {
		if !errors.Is(err, ErrCodeDelivery) {
			return nil, err
		}
		logger.Log.Warn("Account created without a delivered confirmation code",
			zap.String("user_id", user.ID.String()),
		)
	}

	return user, nil
}

// Update applies an admin write to the account named username.
func (s *UserService) Update(ctx context.Context, actor *models.User, username string, in UserInput) (*models.User, error) {
	user, err := s.Get(ctx, username)
	if err != nil {
		return nil, err
	}
	if err := s.apply(ctx, actor, user, in, true); err != nil {
		return nil, err
	}
	return s.save(ctx, user)
}

// UpdateMe applies a self-service write. The role field is ignored.
func (s *UserService) UpdateMe(ctx context.Context, actor *models.User, in UserInput) (*models.User, error) {
	in.Role = nil
	user := *actor
	if err := s.apply(ctx, actor, &user, in, false); err != nil {
		return nil, err
	}
	return s.save(ctx, &user)
}

func (s *UserService) Delete(ctx context.Context, actor *models.User, username string) error {
	user, err := s.Get(ctx, username)
	if err != nil {
		return err
	}
	if err := s.userRepo.DeleteUser(ctx, user.ID); err != nil {
		logger.Log.Error("Failed to delete user",
			zap.String("user_id", user.ID.String()),
			zap.Error(err),
		)
		return err
	}
	logger.Log.Info("User deleted",
		zap.String("user_id", user.ID.String()),
		zap.String("username", user.Username),
		zap.String("actor", actor.Username),
	)
	return nil
}

func (s *UserService) save(ctx context.Context, user *models.User) (*models.User, error) {
	if err := s.userRepo.UpdateProfile(ctx, user); err != nil {
		if isDuplicateKey(err) {
			return nil, s.identityConflict(ctx, user)
		}
		logger.Log.Error("Failed to update user",
			zap.String("user_id", user.ID.String()),
			zap.Error(err),
		)
		return nil, err
	}
	logger.Log.Info("User updated",
		zap.String("user_id", user.ID.String()),
		zap.String("username", user.Username),
	)
	return user, nil
}

// apply validates in and copies it onto user. allowRole gates the role field.
func (s *UserService) apply(ctx context.Context, actor, user *models.User, in UserInput, allowRole bool) error {
	ve := &ValidationError{}

	if in.Username != nil {
		validateUsernameField(ve, *in.Username)
		user.Username = *in.Username
	}
	if in.Email != nil {
		ve.AddErr("email", utils.ValidateEmail(*in.Email))
		user.Email = *in.Email
	}
	if in.FirstName != nil {
		ve.AddErr("first_name", utils.ValidateMaxLength(*in.FirstName, maxPersonNameLength))
		user.FirstName = *in.FirstName
	}
	if in.LastName != nil {
		ve.AddErr("last_name", utils.ValidateMaxLength(*in.LastName, maxPersonNameLength))
		user.LastName = *in.LastName
	}
	if in.Bio != nil {
		user.Bio = *in.Bio
	}
	if in.Role != nil && allowRole {
		role := models.Role(*in.Role)
		switch {
		case !role.Valid():
			ve.Add("role", fmt.Sprintf("%q is not a valid choice", *in.Role))
		case !permissions.CanChangeRole(actor):
			ve.Add("role", "you do not have permission to change roles")
		default:
			setRole(user, role)
		}
	}

	if ve.HasErrors() {
		logger.Log.Warn("User validation failed",
			zap.String("username", user.Username),
			zap.Error(ve),
		)
		return ve
	}

	return s.checkIdentityTaken(ctx, user)
}

// setRole keeps staff status in step with the admin role.
func setRole(user *models.User, role models.Role) {
	user.Role = role
	user.IsStaff = role == models.RoleAdmin
}

// checkIdentityTaken reports username/email collisions with other accounts.
func (s *UserService) checkIdentityTaken(ctx context.Context, user *models.User) error {
	ve := &ValidationError{}

	other, err := s.userRepo.GetUserByUsername(ctx, user.Username)
	if err != nil {
		return err
	}
	if other != nil && other.ID != user.ID {
		ve.Add("username", msgAlreadyInUse)
	}

	other, err = s.userRepo.GetUserByEmail(ctx, user.Email)
	if err != nil {
		return err
	}
	if other != nil && other.ID != user.ID {
		ve.Add("email", msgAlreadyInUse)
	}

	return ve.OrNil()
}

// identityConflict turns a unique index violation into a field error.
func (s *UserService) identityConflict(ctx context.Context, user *models.User) error {
	if err := s.checkIdentityTaken(ctx, user); err != nil {
		return err
	}
	return NewValidationError("username", msgAlreadyInUse)
}

// UserByID loads the account a token refers to; (nil, nil) when it is gone.
func (s *UserService) UserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.userRepo.GetUserByID(ctx, id)
}
