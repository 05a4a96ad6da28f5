package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/dinein/internal/schedule/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, shift *domain.Shift) error {
	return db.WithContext(ctx).Create(shift).Error
}

func (r *repo) Find(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Shift, error) {
	var shift domain.Shift
	err := db.WithContext(ctx).Where("id = ?", id).Take(&shift).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &shift, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, shift *domain.Shift) error {
	return db.WithContext(ctx).Save(shift).Error
}

func (r *repo) ListForEmployee(ctx context.Context, db *gorm.DB, employeeID snowflake.ID, date string) ([]domain.Shift, error) {
	var shifts []domain.Shift
	err := db.WithContext(ctx).
		Where("employee_id = ? AND shift_date = ?", employeeID, date).
		Order("start_at ASC").
		Find(&shifts).Error
	return shifts, err
}
