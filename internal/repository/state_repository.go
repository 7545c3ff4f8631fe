package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"anpr-client/internal/storage"
)

// StateRepository stores named blobs in the client_state table.
type StateRepository struct {
	db *gorm.DB
}

func NewStateRepository(db *gorm.DB) *StateRepository {
	return &StateRepository{db: db}
}

type ClientState struct {
	Name      string         `gorm:"primaryKey"`
	Value     datatypes.JSON `gorm:"not null"`
	UpdatedAt time.Time
}

func (ClientState) TableName() string {
	return "client_state"
}

func (r *StateRepository) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var row ClientState
	err := r.db.WithContext(ctx).Where("name = ?", key).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return []byte(row.Value), true, nil
}

func (r *StateRepository) Set(ctx context.Context, key string, value []byte) error {
	row := ClientState{
		Name:      key,
		Value:     datatypes.JSON(value),
		UpdatedAt: time.Now(),
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&row).Error
}

func (r *StateRepository) Remove(ctx context.Context, key string) error {
	return r.db.WithContext(ctx).Where("name = ?", key).Delete(&ClientState{}).Error
}

var _ storage.Store = (*StateRepository)(nil)
