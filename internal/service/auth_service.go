package service

import (
	"context"
	"fmt"
	"time"

	"github.com/yamdb/yamdb-api/internal/models"
	"github.com/yamdb/yamdb-api/internal/repository"
	"github.com/yamdb/yamdb-api/internal/utils"
	"github.com/yamdb/yamdb-api/pkg/logger"
	"go.uber.org/zap"
)

// maxCodeInputLength bounds the submitted code; longer input is rejected
// before any lookup.
const maxCodeInputLength = 64

// CodeSender delivers confirmation codes out of band.
type CodeSender interface {
	SendConfirmationCode(ctx context.Context, email, username, code string) error
}

type AuthService struct {
	userRepo      *repository.UserRepository
	sender        CodeSender
	jwtSecret     string
	jwtExpiration time.Duration
	codeTTL       time.Duration
	now           func() time.Time
}

func NewAuthService(
	userRepo *repository.UserRepository,
	sender CodeSender,
	jwtSecret string,
	jwtExpiration time.Duration,
	codeTTL time.Duration,
) *AuthService {
	return &AuthService{
		userRepo:      userRepo,
		sender:        sender,
		jwtSecret:     jwtSecret,
		jwtExpiration: jwtExpiration,
		codeTTL:       codeTTL,
		now:           time.Now,
	}
}

// Signup creates the account on first use of a (username, email) pair, or
// rotates the confirmation code of the existing one, and sends the code.
func (s *AuthService) Signup(ctx context.Context, email, username string) (*models.User, error) {
	start := time.Now()

	logger.Log.Debug("Processing signup",
		zap.String("username", username),
		zap.String("email", email),
	)

	ve := &ValidationError{}
	validateUsernameField(ve, username)
	ve.AddErr("email", utils.ValidateEmail(email))
	if ve.HasErrors() {
		logger.Log.Warn("Signup validation failed",
			zap.String("username", username),
			zap.Error(ve),
		)
		return nil, ve
	}

	user, err := s.userRepo.GetUserByUsername(ctx, username)
	if err != nil {
		logger.Log.Error("Failed to look up user by username",
			zap.String("username", username),
			zap.Error(err),
		)
		return nil, err
	}

	if err := s.checkSignupIdentity(ctx, user, email, username); err != nil {
		return nil, err
	}

	if user == nil {
		user = &models.User{
			Username: username,
			Email:    email,
			Role:     models.RoleUser,
		}
		if err := s.userRepo.CreateUser(ctx, user); err != nil {
			if isDuplicateKey(err) {
				logger.Log.Warn("Concurrent signup for the same identity",
					zap.String("username", username),
					zap.String("email", email),
				)
				return nil, s.signupConflict(ctx, email, username)
			}
			logger.Log.Error("Failed to create user",
				zap.String("username", username),
				zap.Error(err),
			)
			return nil, err
		}
		logger.Log.Info("User created at signup",
			zap.String("user_id", user.ID.String()),
			zap.String("username", username),
		)
	}

	if err := s.IssueConfirmationCode(ctx, user); err != nil {
		return nil, err
	}

	logger.Log.Info("Signup processed",
		zap.String("user_id", user.ID.String()),
		zap.String("username", username),
		zap.Duration("total_duration", time.Since(start)),
	)

	return user, nil
}

// checkSignupIdentity rejects a username bound to another email and an email
// bound to another username.
func (s *AuthService) checkSignupIdentity(ctx context.Context, byUsername *models.User, email, username string) error {
	ve := &ValidationError{}
	if byUsername != nil && byUsername.Email != email {
		ve.Add("username", msgAlreadyInUse)
	}

	byEmail, err := s.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		logger.Log.Error("Failed to look up user by email",
			zap.String("email", email),
			zap.Error(err),
		)
		return err
	}
	if byEmail != nil && byEmail.Username != username {
		ve.Add("email", msgAlreadyInUse)
	}

	if ve.HasErrors() {
		logger.Log.Warn("Signup identity conflict",
			zap.String("username", username),
			zap.String("email", email),
			zap.Error(ve),
		)
	}
	return ve.OrNil()
}

// signupConflict rebuilds the field error after the unique index rejected an insert.
func (s *AuthService) signupConflict(ctx context.Context, email, username string) error {
	byUsername, err := s.userRepo.GetUserByUsername(ctx, username)
	if err != nil {
		return err
	}
	if err := s.checkSignupIdentity(ctx, byUsername, email, username); err != nil {
		return err
	}
	return NewValidationError("username", msgAlreadyInUse)
}

// IssueConfirmationCode stores a fresh code hash for user and then sends the
// plain code. The code is persisted even when delivery fails.
func (s *AuthService) IssueConfirmationCode(ctx context.Context, user *models.User) error {
	code, err := utils.GenerateConfirmationCode()
	if err != nil {
		logger.Log.Error("Failed to generate confirmation code", zap.Error(err))
		return err
	}

	hash, err := utils.HashConfirmationCode(code)
	if err != nil {
		logger.Log.Error("Failed to hash confirmation code", zap.Error(err))
		return err
	}

	var expiresAt *time.Time
	if s.codeTTL > 0 {
		t := s.now().Add(s.codeTTL).UTC()
		expiresAt = &t
	}

	if err := s.userRepo.SetConfirmationCode(ctx, user.ID, hash, expiresAt); err != nil {
		logger.Log.Error("Failed to store confirmation code",
			zap.String("user_id", user.ID.String()),
			zap.Error(err),
		)
		return err
	}
	user.ConfirmationCode = hash
	user.ConfirmationCodeExpiresAt = expiresAt

	if err := s.sender.SendConfirmationCode(ctx, user.Email, user.Username, code); err != nil {
		logger.Log.Error("Failed to deliver confirmation code",
			zap.String("user_id", user.ID.String()),
			zap.String("email", user.Email),
			zap.Error(err),
		)
		return fmt.Errorf("%w: %v", ErrCodeDelivery, err)
	}

	logger.Log.Debug("Confirmation code sent",
		zap.String("user_id", user.ID.String()),
	)
	return nil
}

// Token exchanges a confirmation code for an access token. Any failed
// attempt invalidates the stored code; a successful one consumes it.
func (s *AuthService) Token(ctx context.Context, username, code string) (string, error) {
	logger.Log.Debug("Processing token exchange",
		zap.String("username", username),
	)

	ve := &ValidationError{}
	ve.AddErr("username", utils.ValidateRequired(username, utils.MaxUsernameLength))
	ve.AddErr("confirmation_code", utils.ValidateRequired(code, maxCodeInputLength))
	if ve.HasErrors() {
		return "", ve
	}

	user, err := s.userRepo.GetUserByUsername(ctx, username)
	if err != nil {
		logger.Log.Error("Failed to look up user by username",
			zap.String("username", username),
			zap.Error(err),
		)
		return "", err
	}
	if user == nil {
		logger.Log.Warn("Token exchange for unknown user",
			zap.String("username", username),
		)
		return "", ErrUserNotFound
	}

	valid, err := utils.VerifyConfirmationCode(code, user.ConfirmationCode)
	if err != nil {
		logger.Log.Error("Stored confirmation code is unreadable",
			zap.String("user_id", user.ID.String()),
			zap.Error(err),
		)
		valid = false
	}
	expired := user.ConfirmationCodeExpiresAt != nil && s.now().After(*user.ConfirmationCodeExpiresAt)

	if !valid || expired {
		if err := s.userRepo.SetConfirmationCode(ctx, user.ID, utils.InvalidatedCode, nil); err != nil {
			logger.Log.Error("Failed to invalidate confirmation code",
				zap.String("user_id", user.ID.String()),
				zap.Error(err),
			)
			return "", err
		}
		logger.Log.Warn("Confirmation code rejected",
			zap.String("user_id", user.ID.String()),
			zap.Bool("expired", expired),
		)
		return "", ErrInvalidConfirmationCode
	}

	consumed, err := s.userRepo.ConsumeConfirmationCode(ctx, user.ID, user.ConfirmationCode)
	if err != nil {
		logger.Log.Error("Failed to consume confirmation code",
			zap.String("user_id", user.ID.String()),
			zap.Error(err),
		)
		return "", err
	}
	if !consumed {
		logger.Log.Warn("Confirmation code already used",
			zap.String("user_id", user.ID.String()),
		)
		return "", ErrInvalidConfirmationCode
	}

	token, err := utils.GenerateToken(user, s.jwtSecret, s.jwtExpiration)
	if err != nil {
		logger.Log.Error("Failed to generate JWT token",
			zap.String("user_id", user.ID.String()),
			zap.Error(err),
		)
		return "", err
	}

	logger.Log.Info("Access token issued",
		zap.String("user_id", user.ID.String()),
		zap.String("username", user.Username),
	)

	return token, nil
}

func validateUsernameField(ve *ValidationError, username string) {
	if err := utils.ValidateRequired(username, utils.MaxUsernameLength); err != nil {
		ve.AddErr("username", err)
		return
	}
	ve.AddErr("username", utils.ValidateUsername(username))
}
