// Package gormstore keeps the deleted-record ledger in MySQL through GORM.
package gormstore

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/warp/leave-sync/generic"
)

// DeletedRecord is one row of the ledger table.
type DeletedRecord struct {
	ApprovalID string    `gorm:"primaryKey;type:varchar(191)" json:"approval_id"`
	RecordedAt time.Time `gorm:"not null;index" json:"recorded_at"`
}

func (DeletedRecord) TableName() string {
	return "deleted_records"
}

type Store struct {
	db  *gorm.DB
	now func() time.Time
}

// Open connects with a go-sql-driver DSN
// (user:pass@tcp(host:3306)/db?parseTime=true) and migrates the table.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("ping mysql: %w", err)
	}

	if err := db.AutoMigrate(&DeletedRecord{}); err != nil {
		return nil, fmt.Errorf("migrate ledger table: %w", err)
	}
	return FromDB(db), nil
}

// FromDB wraps an already migrated connection.
func FromDB(db *gorm.DB) *Store {
	return &Store{db: db, now: time.Now}
}

func (s *Store) Load(ctx context.Context) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).
		Model(&DeletedRecord{}).
		Order("approval_id").
		Pluck("approval_id", &ids).Error
	if err != nil {
		return nil, err
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

// Append inserts approvalID; an existing row is left untouched.
func (s *Store) Append(ctx context.Context, approvalID string) error {
	rec := DeletedRecord{ApprovalID: approvalID, RecordedAt: s.now().UTC()}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rec).Error
}

func (s *Store) Entries(ctx context.Context) ([]generic.LedgerEntry, error) {
	var recs []DeletedRecord
	if err := s.db.WithContext(ctx).Order("approval_id").Find(&recs).Error; err != nil {
		return nil, err
	}
	out := make([]generic.LedgerEntry, 0, len(recs))
	for i := range recs {
		at := recs[i].RecordedAt
		out = append(out, generic.LedgerEntry{ApprovalID: recs[i].ApprovalID, RecordedAt: &at})
	}
	return out, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

var (
	_ generic.LedgerStore = (*Store)(nil)
	_ generic.EntryLister = (*Store)(nil)
)
