package sqlgrid

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yndnr/gridsession-go/pkg/grid"
)

// Map is the set of grid_entries rows sharing one map_name.
type Map struct {
	name   string
	client *Client
}

var _ grid.Map = (*Map)(nil)

func (m *Map) Name() string { return m.name }

// live scopes a query to unexpired rows of this map.
func (m *Map) live(ctx context.Context) *gorm.DB {
	return m.client.db.WithContext(ctx).
		Model(&entry{}).
		Where("map_name = ?", m.name).
		Where("expires_at = 0 OR expires_at > ?", m.client.now())
}

func (m *Map) Get(ctx context.Context, key string) ([]byte, error) {
	if err := m.client.check(ctx); err != nil {
		return nil, err
	}
	var e entry
	err := m.live(ctx).Where("entry_key = ?", key).Take(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if e.Value == nil {
		e.Value = []byte{}
	}
	return e.Value, nil
}

func (m *Map) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := m.client.check(ctx); err != nil {
		return err
	}
	e := entry{
		MapName:  m.name,
		EntryKey: key,
		Value:    append([]byte{}, value...),
	}
	if ttl > 0 {
		e.ExpiresAt = m.client.clock().Add(ttl).UnixMilli()
	}
	return m.client.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "map_name"}, {Name: "entry_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "expires_at"}),
	}).Create(&e).Error
}

func (m *Map) Delete(ctx context.Context, key string) error {
	if err := m.client.check(ctx); err != nil {
		return err
	}
	return m.client.db.WithContext(ctx).
		Where("map_name = ? AND entry_key = ?", m.name, key).
		Delete(&entry{}).Error
}

func (m *Map) Clear(ctx context.Context) error {
	if err := m.client.check(ctx); err != nil {
		return err
	}
	return m.client.db.WithContext(ctx).
		Where("map_name = ?", m.name).
		Delete(&entry{}).Error
}

func (m *Map) Size(ctx context.Context) (int, error) {
	if err := m.client.check(ctx); err != nil {
		return 0, err
	}
	var n int64
	if err := m.live(ctx).Count(&n).Error; err != nil {
		return 0, err
	}
	return int(n), nil
}

func (m *Map) Values(ctx context.Context) ([][]byte, error) {
	if err := m.client.check(ctx); err != nil {
		return nil, err
	}
	var values [][]byte
	if err := m.live(ctx).Pluck("value", &values).Error; err != nil {
		return nil, err
	}
	for i, v := range values {
		if v == nil {
			values[i] = []byte{}
		}
	}
	return values, nil
}
