package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rathalos(index int) MonsterModel {
	return MonsterModel{
		ID:    "em001_00",
		Index: index,
		Parts: []MonsterPartModel{
			{ID: "head", Health: 400, MaxHealth: 500},
			{ID: "tail", Health: 0, MaxHealth: 350, Counter: 1, IsRemovable: true},
		},
		Ailments: []AilmentModel{
			{ID: "poison", Buildup: 120, MaxBuildup: 180},
		},
	}
}

func TestMonsterModel_Equal(t *testing.T) {
	a, b := rathalos(0), rathalos(0)
	assert.True(t, a.Equal(b))

	b.Parts[0].Health = 399
	assert.False(t, a.Equal(b), "part health differs")

	c := rathalos(1)
	assert.False(t, a.Equal(c), "index differs")

	d := rathalos(0)
	d.Ailments = append(d.Ailments, AilmentModel{ID: "sleep"})
	assert.False(t, a.Equal(d), "extra ailment")
}

func TestMonsterModel_Equal_NilVersusEmpty(t *testing.T) {
	a := MonsterModel{ID: "x", Index: 2}
	b := MonsterModel{ID: "x", Index: 2, Parts: []MonsterPartModel{}, Ailments: []AilmentModel{}}
	assert.True(t, a.Equal(b))
}

func TestPushRequest_WireForm(t *testing.T) {
	req := PushRequest{Monsters: []MonsterModel{{
		ID:       "em002_00",
		Index:    1,
		Parts:    []MonsterPartModel{{ID: "head", Health: 10, MaxHealth: 20}},
		Ailments: nil,
	}}}

	b, err := json.Marshal(req)
	require.NoError(t, err)
	assert.JSONEq(t, `{"monsters":["$__",["id","index","parts","ailments"],
		["em002_00",1,["$__",["id","health","max_health","counter","is_removable"],["head",10,20,0,false]],[]]]}`,
		string(b))
}

func TestPushRequest_RoundTrip(t *testing.T) {
	req := PushRequest{Monsters: []MonsterModel{rathalos(0), rathalos(2)}}

	b, err := json.Marshal(req)
	require.NoError(t, err)

	var out PushRequest
	require.NoError(t, json.Unmarshal(b, &out))
	require.Len(t, out.Monsters, 2)
	for i := range req.Monsters {
		assert.True(t, req.Monsters[i].Equal(out.Monsters[i]), "monster %d", i)
	}
}
