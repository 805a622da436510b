package repo

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mbelenkov/microshop/internal/auth/models"
)

var ErrUsernameTaken = errors.New("username already taken")

// CreateUser inserts in a single statement; uniqueness is the DB's unique
// index, so two concurrent inserts of the same username cannot both win.
func (r *GormRepo) CreateUser(ctx context.Context, username, passwordHash string) (*models.User, error) {
	user := models.User{
		ID:           uuid.New(),
		Username:     username,
		PasswordHash: passwordHash,
		Role:         "user",
	}
	if err := r.DB.WithContext(ctx).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrUsernameTaken
		}
		return nil, err
	}
	return &user, nil
}

func (r *GormRepo) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// DeleteTestUsers is the administrative cleanup used by test environments.
// A plain DELETE, so it cannot resurrect stale uniqueness state under
// concurrent registrations.
func (r *GormRepo) DeleteTestUsers(ctx context.Context) error {
	return r.DB.WithContext(ctx).
		Where("username LIKE ?", "test_%").
		Delete(&models.User{}).Error
}
