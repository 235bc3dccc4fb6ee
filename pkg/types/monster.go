package types

import (
	"slices"

	"github.com/monstersync/monstersync/pkg/compact"
)

// MonsterModel is the pushed state of one monster slot.
type MonsterModel struct {
	// ID is the monster type identifier, e.g. "em001_00".
	ID string `json:"id"`

	// Index is the slot the monster occupies. Unique within a session and
	// stable for the lifetime of the monster.
	Index int `json:"index"`

	Parts    compact.List[MonsterPartModel] `json:"parts"`
	Ailments compact.List[AilmentModel]     `json:"ailments"`
}

// MonsterPartModel is the state of one breakable or severable part.
type MonsterPartModel struct {
	ID          string  `json:"id"`
	Health      float64 `json:"health"`
	MaxHealth   float64 `json:"max_health"`
	Counter     int     `json:"counter"`
	IsRemovable bool    `json:"is_removable"`
}

// AilmentModel is the state of one status ailment (poison, paralysis, ...).
type AilmentModel struct {
	ID          string  `json:"id"`
	Buildup     float64 `json:"buildup"`
	MaxBuildup  float64 `json:"max_buildup"`
	Duration    float64 `json:"duration"`
	MaxDuration float64 `json:"max_duration"`
	Counter     int     `json:"counter"`
}

// Equal reports whether m and o hold the same values, including every part
// and ailment in order. Nil and empty sequences compare equal.
func (m MonsterModel) Equal(o MonsterModel) bool {
	return m.ID == o.ID &&
		m.Index == o.Index &&
		slices.Equal(m.Parts, o.Parts) &&
		slices.Equal(m.Ailments, o.Ailments)
}
