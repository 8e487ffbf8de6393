package postgres

import (
	"context"
	"errors"
	"time"

	"pricesync/internal/market"

	"gorm.io/gorm/clause"
)

// ErrDuplicateSnapshot is returned when a snapshot with the same symbol and
// timestamp was already recorded.
var ErrDuplicateSnapshot = errors.New("duplicate snapshot skipped")

func (p *PostgresClient) InsertSnapshot(ctx context.Context, record *SnapshotRecord) error {
	tx := p.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "symbol"},
			{Name: "timestamp"},
		},
		DoNothing: true,
	}).Create(record)

	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return ErrDuplicateSnapshot
	}
	return nil
}

// RecordSnapshot stores snap. Repeated observations of the same reading are
// not an error.
func (p *PostgresClient) RecordSnapshot(ctx context.Context, snap market.PriceSnapshot) error {
	err := p.InsertSnapshot(ctx, ToSnapshotRecord(snap))
	if errors.Is(err, ErrDuplicateSnapshot) {
		return nil
	}
	return err
}

// DeleteOldSnapshots removes records observed before the cutoff and returns
// how many were deleted.
func (p *PostgresClient) DeleteOldSnapshots(ctx context.Context, before time.Time) (int64, error) {
	tx := p.DB.WithContext(ctx).
		Where("timestamp < ?", before).
		Delete(&SnapshotRecord{})
	return tx.RowsAffected, tx.Error
}

// ToSnapshotRecord converts a PriceSnapshot into a SnapshotRecord for DB insertion.
func ToSnapshotRecord(snap market.PriceSnapshot) *SnapshotRecord {
	return &SnapshotRecord{
		Symbol:    string(snap.Symbol),
		Timestamp: snap.Timestamp.UTC(),
		Price:     snap.Price,
		Volume:    snap.Volume,
		IsAnomaly: snap.IsAnomaly,
	}
}
