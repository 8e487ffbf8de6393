package postgres

import "time"

// SnapshotRecord is one applied price snapshot in the recorder journal.
type SnapshotRecord struct {
	ID uint `gorm:"primaryKey"`

	// unique index
	Symbol    string    `gorm:"type:text;not null;index:idx_snapshot_symbol;index:idx_snapshot_symbol_timestamp,unique"`
	Timestamp time.Time `gorm:"not null;index:idx_snapshot_symbol_timestamp,unique"`

	Price  float64 `gorm:"type:numeric;not null"`
	Volume float64 `gorm:"type:numeric;not null"`

	IsAnomaly bool `gorm:"not null;default:false"`

	RecordedAt time.Time `gorm:"autoCreateTime"`
}

// TableName overrides the default table name for GORM.
func (SnapshotRecord) TableName() string {
	return "price_snapshot_record"
}
