package schema

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// MaxOptionsSize bounds the serialized options column.
const MaxOptionsSize = 5096

type GameObject struct {
	gorm.Model
	Kind    Kind           `gorm:"index;not null" json:"kind"`
	Name    string         `gorm:"not null" json:"name"`
	Slug    string         `gorm:"uniqueIndex;not null" json:"slug"`
	Layout  int            `gorm:"not null;default:1" json:"layout"`
	Options datatypes.JSON `gorm:"type:varchar(5096);not null" json:"options"`
}

func (GameObject) TableName() string { return "games" }
