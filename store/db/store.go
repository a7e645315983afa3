// Package db is a snapshot store backed by SQLite through gorm.
package db

import (
	"context"
	"fmt"
	"log/slog"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/govm-net/nativevm/core"
	"github.com/govm-net/nativevm/store"
)

const defaultDSN = "file::memory:"

// DBSlot is one committed slot row
type DBSlot struct {
	Owner    []byte `gorm:"column:owner_address;primaryKey;size:16"`
	Contract []byte `gorm:"column:contract_address;primaryKey;size:16"`
	Data     []byte `gorm:"column:slot_data;type:blob"`
}

// TableName specifies the table name for DBSlot
func (DBSlot) TableName() string {
	return "slots"
}

// Store writes every snapshot in a single transaction.
type Store struct {
	db *gorm.DB
}

func init() {
	if err := store.Register(store.DBStoreType, NewStore); err != nil {
		panic(err)
	}
}

// NewStore opens the database named by params["dsn"]. It defaults to a private in-memory
// database.
func NewStore(params map[string]any) (store.SnapshotStore, error) {
	dsn := defaultDSN
	if v, ok := params["dsn"].(string); ok && v != "" {
		dsn = v
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.AutoMigrate(&DBSlot{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	// an in-memory database lives as long as its connection
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get connection pool: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	return &Store{db: db}, nil
}

func (s *Store) Save(ctx context.Context, entries []store.Entry) error {
	rows := make([]DBSlot, len(entries))
	for i, e := range entries {
		rows[i] = DBSlot{Owner: e.Owner[:], Contract: e.Contract[:], Data: e.Data}
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&DBSlot{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.CreateInBatches(rows, 100).Error
	})
	if err != nil {
		slog.Error("failed to save snapshot", "entries", len(entries), "error", err)
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

func (s *Store) Load(ctx context.Context) ([]store.Entry, error) {
	var rows []DBSlot
	if err := s.db.WithContext(ctx).Order("owner_address, contract_address").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}
	entries := make([]store.Entry, 0, len(rows))
	for _, r := range rows {
		owner, err := core.AddressFromBytes(r.Owner)
		if err != nil {
			return nil, fmt.Errorf("invalid owner in slot row: %w", err)
		}
		contract, err := core.AddressFromBytes(r.Contract)
		if err != nil {
			return nil, fmt.Errorf("invalid contract in slot row: %w", err)
		}
		entries = append(entries, store.Entry{Owner: owner, Contract: contract, Data: r.Data})
	}
	// blob order is big-endian byte order, addresses compare as little-endian numbers
	store.SortEntries(entries)
	return entries, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
