package specification

import (
	"fmt"

	"gorm.io/gorm"
)

// Specification narrows or orders a GORM query.
type Specification interface {
	Apply(db *gorm.DB) *gorm.DB
}

type ByID struct {
	ID uint
}

func (s ByID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("id = ?", s.ID)
}

// OrderBy sorts on a trusted column name.
type OrderBy struct {
	Field string
	Desc  bool
}

func (s OrderBy) Apply(db *gorm.DB) *gorm.DB {
	direction := "ASC"
	if s.Desc {
		direction = "DESC"
	}
	return db.Order(fmt.Sprintf("%s %s", s.Field, direction))
}

// Pagination limits and offsets a listing.
type Pagination struct {
	Limit  int
	Offset int
}

func (s Pagination) Apply(db *gorm.DB) *gorm.DB {
	return db.Limit(s.Limit).Offset(s.Offset)
}

// Newest orders by id descending and keeps the first limit rows.
// Ids are monotonic so this is insertion order without relying on timestamps.
func Newest(limit int) []Specification {
	specs := []Specification{OrderBy{Field: "id", Desc: true}}
	if limit > 0 {
		specs = append(specs, Pagination{Limit: limit})
	}
	return specs
}
