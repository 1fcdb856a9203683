package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadTrackTemplates(t *testing.T) {
	for _, name := range TrackNames() {
		t.Run(name, func(t *testing.T) {
			track, err := LoadTrack(name)
			require.NoError(t, err)
			assert.Equal(t, 20, track.Width)
			assert.Equal(t, 15, track.Height)

			for _, s := range track.Spawns {
				assert.Equal(t, TileAsphalt, track.TileAt(s.GridX, s.GridY), "出生点 %v", s)
			}
			for _, cp := range track.Checkpoints {
				assert.True(t, track.Walkable(cp.GridX, cp.GridY), "检查点 %v", cp)
			}
		})
	}
}

func TestLoadTrackUnknown(t *testing.T) {
	_, err := LoadTrack("moon")
	assert.ErrorIs(t, err, ErrUnknownTrack)
}

func TestTrackLookup(t *testing.T) {
	track, err := LoadTrack("oval")
	require.NoError(t, err)

	assert.Equal(t, TileBarrier, track.TileAt(-1, 3))
	assert.Equal(t, tileModifiers[TileBarrier], track.ModifiersAt(Vec2{-10, -10}))
	assert.Equal(t, DefaultTerrain, track.ModifiersAt(GridCenter(GridPos{8, 2})))
	assert.Equal(t, tileModifiers[TileIce], track.ModifiersAt(GridCenter(GridPos{16, 7})))

	min, max := track.Bounds()
	assert.Equal(t, Vec2{}, min)
	assert.Equal(t, Vec2{20 * TileSize, 15 * TileSize}, max)

	s := track.SpawnState(5)
	assert.Equal(t, GridCenter(track.Spawns[1].GridPos), s.Position)
	assert.Equal(t, GridPos{8, 2}, WorldToGrid(GridCenter(GridPos{8, 2})))
}
