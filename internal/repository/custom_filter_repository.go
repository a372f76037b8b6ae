package repository

import (
	"context"

	"github.com/thetyagiayush/warhol-ringmaster/internal/domain"
	"gorm.io/gorm"
)

// CustomFilterRepository persists the operator's custom recipient filters.
// The whole list is read and written at once, mirroring a single stored entry.
type CustomFilterRepository struct {
	db *gorm.DB
}

func NewCustomFilterRepository(db *gorm.DB) *CustomFilterRepository {
	return &CustomFilterRepository{db: db}
}

// LoadFilters returns every stored filter in creation order with numbers in
// their original order
func (r *CustomFilterRepository) LoadFilters(ctx context.Context) ([]domain.CustomFilter, error) {
	var records []domain.CustomFilterRecord
	err := r.db.WithContext(ctx).
		Preload("Numbers", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Order("position ASC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}

	filters := make([]domain.CustomFilter, 0, len(records))
	for _, rec := range records {
		numbers := make([]string, 0, len(rec.Numbers))
		for _, n := range rec.Numbers {
			numbers = append(numbers, n.PhoneNumber)
		}
		filters = append(filters, domain.CustomFilter{
			ID:           rec.ID,
			Name:         rec.Name,
			PhoneNumbers: numbers,
		})
	}
	return filters, nil
}

// SaveFilters replaces the stored list with filters
func (r *CustomFilterRepository) SaveFilters(ctx context.Context, filters []domain.CustomFilter) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&domain.CustomFilterNumber{}).Error; err != nil {
			return err
		}
		if err := tx.Where("1 = 1").Delete(&domain.CustomFilterRecord{}).Error; err != nil {
			return err
		}
		if len(filters) == 0 {
			return nil
		}

		records := make([]domain.CustomFilterRecord, 0, len(filters))
		for i, f := range filters {
			numbers := make([]domain.CustomFilterNumber, 0, len(f.PhoneNumbers))
			for pos, n := range f.PhoneNumbers {
				numbers = append(numbers, domain.CustomFilterNumber{
					FilterID:    f.ID,
					Position:    pos,
					PhoneNumber: n,
				})
			}
			records = append(records, domain.CustomFilterRecord{
				ID:       f.ID,
				Name:     f.Name,
				Position: i,
				Numbers:  numbers,
			})
		}
		return tx.Create(&records).Error
	})
}

// Count returns the number of stored filters
func (r *CustomFilterRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.CustomFilterRecord{}).Count(&count).Error
	return count, err
}
