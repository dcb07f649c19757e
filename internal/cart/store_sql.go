package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// snapshotRow maps the cart_snapshots table created by pkg/migrate.
type snapshotRow struct {
	Key       string    `gorm:"column:snapshot_key;primaryKey;size:191"`
	Payload   string    `gorm:"column:payload;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null"`
}

func (snapshotRow) TableName() string { return "cart_snapshots" }

// SQLStore keeps snapshots in Postgres or SQLite through gorm.
type SQLStore struct {
	db *gorm.DB
}

func NewSQLStore(db *gorm.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) Name() string { return "sql" }

func (s *SQLStore) Load(ctx context.Context, key string) ([]byte, error) {
	var row snapshotRow
	err := s.db.WithContext(ctx).Where("snapshot_key = ?", key).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load cart snapshot: %w", err)
	}
	return []byte(row.Payload), nil
}

func (s *SQLStore) Save(ctx context.Context, key string, payload []byte) error {
	row := snapshotRow{Key: key, Payload: string(payload), UpdatedAt: time.Now().UTC()}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "snapshot_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"payload", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("save cart snapshot: %w", err)
	}
	return nil
}
