package repo

import "gorm.io/gorm"

type GormRepo struct {
	DB *gorm.DB
}

const (
	DefaultListLimit = 50
	MaxListLimit     = 200
)

type ListFilter struct {
	Category string
	Offset   int
	Limit    int
}

func (f ListFilter) normalized() ListFilter {
	if f.Offset < 0 {
		f.Offset = 0
	}
	if f.Limit <= 0 {
		f.Limit = DefaultListLimit
	}
	if f.Limit > MaxListLimit {
		f.Limit = MaxListLimit
	}
	return f
}
