package sqlgrid

// entry is one row of grid_entries.
type entry struct {
	MapName   string `gorm:"primaryKey;size:255"`
	EntryKey  string `gorm:"primaryKey;size:1024"`
	Value     []byte
	ExpiresAt int64 `gorm:"index;not null"`
}

func (entry) TableName() string { return "grid_entries" }
