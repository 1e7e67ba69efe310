package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/genbit2025/durable-objects-test-v2/connector"
	"github.com/genbit2025/durable-objects-test-v2/xerrors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultTable SQL 后端默认表名
const DefaultTable = "durable_kv"

// kvRecord 存储表的一行。
// key 长度不受限，主键使用其 SHA-256，原始 key 只做记录不建索引。
type kvRecord struct {
	Hash      string    `gorm:"column:kv_hash;primaryKey;size:64"`
	Key       string    `gorm:"column:kv_key;type:text"`
	Value     []byte    `gorm:"column:kv_value"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func newRecord(key string, value []byte) *kvRecord {
	return &kvRecord{Hash: keyHash(key), Key: key, Value: value, UpdatedAt: time.Now().UTC()}
}

func keyHash(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

type sqlBackend struct {
	db    *gorm.DB
	table string
}

// NewSQL 基于 GORM 的后端，适用于 SQLite 与 MySQL。
// PutIfAbsent 使用 INSERT ... ON CONFLICT DO NOTHING，由主键保证原子性。
func NewSQL(ctx context.Context, conn connector.TypedConnector[*gorm.DB], table string) (Backend, error) {
	if conn == nil || conn.GetClient() == nil {
		return nil, xerrors.Wrap(ErrConnectorNil, "sql")
	}
	if table == "" {
		table = DefaultTable
	}

	b := &sqlBackend{db: conn.GetClient(), table: table}
	if err := b.session(ctx).AutoMigrate(&kvRecord{}); err != nil {
		return nil, xerrors.Wrapf(err, "storage: migrate table %s", table)
	}
	return b, nil
}

func (s *sqlBackend) session(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Table(s.table)
}

func (s *sqlBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := checkKey(key); err != nil {
		return nil, false, err
	}
	var rows []kvRecord
	err := s.session(ctx).Where("kv_hash = ?", keyHash(key)).Limit(1).Find(&rows).Error
	if err != nil {
		return nil, false, xerrors.Wrapf(err, "storage: sql get %q", key)
	}
	if len(rows) == 0 {
		return nil, false, nil
	}
	return rows[0].Value, true, nil
}

func (s *sqlBackend) Put(ctx context.Context, key string, value []byte) error {
	if err := checkKey(key); err != nil {
		return err
	}
	err := s.session(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "kv_hash"}},
		DoUpdates: clause.AssignmentColumns([]string{"kv_value", "updated_at"}),
	}).Create(newRecord(key, value)).Error
	if err != nil {
		return xerrors.Wrapf(err, "storage: sql put %q", key)
	}
	return nil
}

func (s *sqlBackend) PutIfAbsent(ctx context.Context, key string, value []byte) (bool, error) {
	if err := checkKey(key); err != nil {
		return false, err
	}
	res := s.session(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(newRecord(key, value))
	if res.Error != nil {
		return false, xerrors.Wrapf(res.Error, "storage: sql insert %q", key)
	}
	return res.RowsAffected == 1, nil
}

func (s *sqlBackend) Delete(ctx context.Context, key string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	if err := s.session(ctx).Where("kv_hash = ?", keyHash(key)).Delete(&kvRecord{}).Error; err != nil {
		return xerrors.Wrapf(err, "storage: sql delete %q", key)
	}
	return nil
}

func (s *sqlBackend) Close() error {
	return nil
}
