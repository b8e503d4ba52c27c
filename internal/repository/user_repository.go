package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yamdb/yamdb-api/internal/models"
	"gorm.io/gorm"
)

// ListOptions is an offset/limit window over an ordered result set.
type ListOptions struct {
	Offset int
	Limit  int
}

func (o ListOptions) apply(db *gorm.DB) *gorm.DB {
	if o.Limit > 0 {
		db = db.Limit(o.Limit)
	}
	if o.Offset > 0 {
		db = db.Offset(o.Offset)
	}
	return db
}

// containsPattern builds a case-insensitive LIKE pattern for substring search.
func containsPattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + strings.ToLower(r.Replace(s)) + "%"
}

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) CreateUser(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.first(ctx, "email = ?", email)
}

func (r *UserRepository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.first(ctx, "username = ?", username)
}

func (r *UserRepository) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *UserRepository) first(ctx context.Context, query string, arg interface{}) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where(query, arg).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// ListUsers returns users ordered by username, optionally filtered by a
// username substring, together with the unpaginated total.
func (r *UserRepository) ListUsers(ctx context.Context, search string, opts ListOptions) ([]models.User, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.User{})
	if search != "" {
		q = q.Where("LOWER(username) LIKE ? ESCAPE '\\'", containsPattern(search))
	}

	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	var users []models.User
	if err := opts.apply(q.Order("username ASC")).Find(&users).Error; err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	return users, total, nil
}

// UpdateProfile persists the editable profile columns, role and staff flag.
func (r *UserRepository) UpdateProfile(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).
		Model(user).
		Select("Username", "Email", "FirstName", "LastName", "Bio", "Role", "IsStaff").
		Updates(user).Error
}

// SetConfirmationCode stores a code hash and its expiry; a nil expiry never expires.
func (r *UserRepository) SetConfirmationCode(ctx context.Context, id uuid.UUID, hash string, expiresAt *time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"confirmation_code":            hash,
			"confirmation_code_expires_at": expiresAt,
		}).Error
}

// DeleteUser removes a user together with their reviews and comments,
// including other users' comments on those reviews.
func (r *UserRepository) DeleteUser(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		authored := tx.Model(&models.Review{}).Select("id").Where("author_id = ?", id)
		if err := tx.Where("review_id IN (?)", authored).Delete(&models.Comment{}).Error; err != nil {
			return fmt.Errorf("delete comments on user reviews: %w", err)
		}
		if err := tx.Where("author_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return fmt.Errorf("delete user comments: %w", err)
		}
		if err := tx.Where("author_id = ?", id).Delete(&models.Review{}).Error; err != nil {
			return fmt.Errorf("delete user reviews: %w", err)
		}
		res := tx.Delete(&models.User{}, "id = ?", id)
		if res.Error != nil {
			return fmt.Errorf("delete user: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// ConsumeConfirmationCode clears the stored code only if it still equals hash,
// so concurrent exchanges of one code cannot both succeed.
func (r *UserRepository) ConsumeConfirmationCode(ctx context.Context, id uuid.UUID, hash string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ? AND confirmation_code = ?", id, hash).
		Updates(map[string]interface{}{
			"confirmation_code":            "",
			"confirmation_code_expires_at": nil,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
