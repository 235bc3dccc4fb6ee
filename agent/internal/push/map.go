package push

import (
	"github.com/monstersync/monstersync/agent/internal/game"
	"github.com/monstersync/monstersync/pkg/types"
)

// MapMonster flattens an observed monster in slot index into its wire model.
// Display-only fields are dropped.
func MapMonster(m *game.Monster, index int) types.MonsterModel {
	out := types.MonsterModel{
		ID:       m.ID,
		Index:    index,
		Parts:    make([]types.MonsterPartModel, 0, len(m.Parts)),
		Ailments: make([]types.AilmentModel, 0, len(m.Ailments)),
	}
	for _, p := range m.Parts {
		out.Parts = append(out.Parts, types.MonsterPartModel{
			ID:          p.ID,
			Health:      p.Health,
			MaxHealth:   p.MaxHealth,
			Counter:     p.BrokenCount,
			IsRemovable: p.IsRemovable,
		})
	}
	for _, a := range m.Ailments {
		out.Ailments = append(out.Ailments, types.AilmentModel{
			ID:          a.ID,
			Buildup:     a.Buildup,
			MaxBuildup:  a.MaxBuildup,
			Duration:    a.Duration,
			MaxDuration: a.MaxDuration,
			Counter:     a.Counter,
		})
	}
	return out
}
