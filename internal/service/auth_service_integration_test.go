package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/yamdb/yamdb-api/internal/models"
	"github.com/yamdb/yamdb-api/internal/repository"
	"github.com/yamdb/yamdb-api/internal/service"
	"github.com/yamdb/yamdb-api/internal/testutil"
	"github.com/yamdb/yamdb-api/internal/utils"
)

// AuthServiceIntegrationTestSuite defines test suite
type AuthServiceIntegrationTestSuite struct {
	suite.Suite
	testDB      *testutil.TestDatabase
	codes       *testutil.CodeRecorder
	userRepo    *repository.UserRepository
	authService *service.AuthService
	ctx         context.Context
}

// SetupSuite runs before all tests
func (s *AuthServiceIntegrationTestSuite) SetupSuite() {
	s.testDB = testutil.SetupTestDatabase(s.T())
	s.userRepo = repository.NewUserRepository(s.testDB.DB)
	s.ctx = context.Background()
}

// TearDownSuite runs after all tests
func (s *AuthServiceIntegrationTestSuite) TearDownSuite() {
	s.testDB.Teardown(s.T())
}

// SetupTest runs before each test (clean database)
func (s *AuthServiceIntegrationTestSuite) SetupTest() {
	testutil.CleanDatabase(s.T(), s.testDB.DB)
	s.codes = testutil.NewCodeRecorder()
	s.authService = service.NewAuthService(s.userRepo, s.codes, testutil.TestJWTSecret, time.Hour, time.Hour)
}

func (s *AuthServiceIntegrationTestSuite) fields(err error) map[string][]string {
	var ve *service.ValidationError
	require.True(s.T(), errors.As(err, &ve), "expected a validation error, got %v", err)
	return ve.Fields
}

func (s *AuthServiceIntegrationTestSuite) TestSignupCreatesUserAndSendsCode() {
	user, err := s.authService.Signup(s.ctx, "a@x.com", "alice")
	require.NoError(s.T(), err)

	assert.Equal(s.T(), models.RoleUser, user.Role)
	code := s.codes.Code("a@x.com")
	assert.Len(s.T(), code, utils.ConfirmationCodeLength)

	stored, err := s.userRepo.GetUserByUsername(s.ctx, "alice")
	require.NoError(s.T(), err)
	require.NotNil(s.T(), stored)
	assert.NotEqual(s.T(), code, stored.ConfirmationCode, "code must be stored hashed")
	require.NotNil(s.T(), stored.ConfirmationCodeExpiresAt)

	ok, err := utils.VerifyConfirmationCode(code, stored.ConfirmationCode)
	require.NoError(s.T(), err)
	assert.True(s.T(), ok)
}

func (s *AuthServiceIntegrationTestSuite) TestRepeatSignupRotatesCode() {
	_, err := s.authService.Signup(s.ctx, "a@x.com", "alice")
	require.NoError(s.T(), err)
	first := s.codes.Code("a@x.com")

	_, err = s.authService.Signup(s.ctx, "a@x.com", "alice")
	require.NoError(s.T(), err)

	var count int64
	s.testDB.DB.Model(&models.User{}).Count(&count)
	assert.Equal(s.T(), int64(1), count)
	assert.Equal(s.T(), 2, s.codes.Sent())

	if first == s.codes.Code("a@x.com") {
		s.T().Skip("random codes collided")
	}
	_, err = s.authService.Token(s.ctx, "alice", first)
	assert.ErrorIs(s.T(), err, service.ErrInvalidConfirmationCode)
}

func (s *AuthServiceIntegrationTestSuite) TestSignupIdentityConflicts() {
	testutil.CreateTestUser(s.T(), s.testDB.DB, "alice", models.RoleUser)

	_, err := s.authService.Signup(s.ctx, "other@x.com", "alice")
	assert.Equal(s.T(), []string{"already in use"}, s.fields(err)["username"])

	_, err = s.authService.Signup(s.ctx, "alice@example.com", "bob")
	assert.Equal(s.T(), []string{"already in use"}, s.fields(err)["email"])

	_, err = s.authService.Signup(s.ctx, "alice@example.com", "alice")
	assert.NoError(s.T(), err)
}

func (s *AuthServiceIntegrationTestSuite) TestConcurrentSignupTakesUsername() {
	now := time.Now().UTC()
	testutil.CompeteBeforeCreate(s.T(), s.testDB.DB, "users",
		"INSERT INTO users (id, username, email, role, is_staff, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		uuid.NewString(), "alice", "other@x.com", "user", false, now, now,
	)

	_, err := s.authService.Signup(s.ctx, "a@x.com", "alice")
	assert.Equal(s.T(), []string{"already in use"}, s.fields(err)["username"])
	assert.Equal(s.T(), 0, s.codes.Sent())

	var count int64
	s.testDB.DB.Model(&models.User{}).Count(&count)
	assert.Equal(s.T(), int64(1), count)
}

func (s *AuthServiceIntegrationTestSuite) TestSignupValidation() {
	_, err := s.authService.Signup(s.ctx, "a@x.com", "me")
	assert.Contains(s.T(), s.fields(err), "username")

	_, err = s.authService.Signup(s.ctx, "a@x.com", "bad name")
	assert.Contains(s.T(), s.fields(err), "username")

	_, err = s.authService.Signup(s.ctx, "not-an-email", "alice")
	assert.Contains(s.T(), s.fields(err), "email")

	assert.Equal(s.T(), 0, s.codes.Sent())
}

func (s *AuthServiceIntegrationTestSuite) TestTokenSucceedsOncePerCode() {
	_, err := s.authService.Signup(s.ctx, "a@x.com", "alice")
	require.NoError(s.T(), err)
	code := s.codes.Code("a@x.com")

	token, err := s.authService.Token(s.ctx, "alice", code)
	require.NoError(s.T(), err)

	claims, err := utils.ValidateToken(token, testutil.TestJWTSecret)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "alice", claims.Username)

	_, err = s.authService.Token(s.ctx, "alice", code)
	assert.ErrorIs(s.T(), err, service.ErrInvalidConfirmationCode)
}

// TestWrongCodeInvalidatesIssuedCode walks signup, a wrong guess, then the
// correct code, which must now be rejected.
func (s *AuthServiceIntegrationTestSuite) TestWrongCodeInvalidatesIssuedCode() {
	_, err := s.authService.Signup(s.ctx, "a@x.com", "alice")
	require.NoError(s.T(), err)
	code := s.codes.Code("a@x.com")

	wrong := "000000"
	if wrong == code {
		wrong = "111111"
	}
	_, err = s.authService.Token(s.ctx, "alice", wrong)
	assert.ErrorIs(s.T(), err, service.ErrInvalidConfirmationCode)

	stored, err := s.userRepo.GetUserByUsername(s.ctx, "alice")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), utils.InvalidatedCode, stored.ConfirmationCode)

	_, err = s.authService.Token(s.ctx, "alice", code)
	assert.ErrorIs(s.T(), err, service.ErrInvalidConfirmationCode)

	_, err = s.authService.Signup(s.ctx, "a@x.com", "alice")
	require.NoError(s.T(), err)
	_, err = s.authService.Token(s.ctx, "alice", s.codes.Code("a@x.com"))
	assert.NoError(s.T(), err, "a fresh signup cycle issues a usable code")
}

func (s *AuthServiceIntegrationTestSuite) TestExpiredCodeIsRejected() {
	_, err := s.authService.Signup(s.ctx, "a@x.com", "alice")
	require.NoError(s.T(), err)

	past := time.Now().Add(-time.Minute)
	require.NoError(s.T(), s.testDB.DB.Model(&models.User{}).
		Where("username = ?", "alice").
		Update("confirmation_code_expires_at", past).Error)

	_, err = s.authService.Token(s.ctx, "alice", s.codes.Code("a@x.com"))
	assert.ErrorIs(s.T(), err, service.ErrInvalidConfirmationCode)
}

func (s *AuthServiceIntegrationTestSuite) TestTokenUnknownUser() {
	_, err := s.authService.Token(s.ctx, "nobody", "123456")
	assert.ErrorIs(s.T(), err, service.ErrUserNotFound)
}

func (s *AuthServiceIntegrationTestSuite) TestTokenRequiresFields() {
	_, err := s.authService.Token(s.ctx, "", "")
	fields := s.fields(err)
	assert.Contains(s.T(), fields, "username")
	assert.Contains(s.T(), fields, "confirmation_code")
}

func (s *AuthServiceIntegrationTestSuite) TestDeliveryFailureIsReported() {
	s.codes.Err = errors.New("smtp down")

	_, err := s.authService.Signup(s.ctx, "a@x.com", "alice")
	assert.ErrorIs(s.T(), err, service.ErrCodeDelivery)

	stored, err := s.userRepo.GetUserByUsername(s.ctx, "alice")
	require.NoError(s.T(), err)
	require.NotNil(s.T(), stored, "the account outcome is independent of delivery")
	assert.NotEmpty(s.T(), stored.ConfirmationCode)
}

// TestAuthServiceIntegrationTestSuite runs the test suite
func TestAuthServiceIntegrationTestSuite(t *testing.T) {
	suite.Run(t, new(AuthServiceIntegrationTestSuite))
}
