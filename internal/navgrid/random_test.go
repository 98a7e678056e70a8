package navgrid

import (
	"testing"

	"github.com/annel0/navgrid/internal/vec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetRandomPosMatching_RespectsPredicates(t *testing.T) {
	terrain := newStubTerrain()
	for x := 0; x < 10; x++ {
		terrain.heights[GridCoord{X: x, Y: 0}] = 1 // под водой
		terrain.slopes[GridCoord{X: x, Y: 1}] = 20
		terrain.slopes[GridCoord{X: x, Y: 2}] = 50
	}
	world := &stubWorld{}
	for x := 0; x < 10; x += 2 {
		world.entities = append(world.entities, stubEntity{pos: vec.Vec3Float{X: float64(x) + 0.5, Z: 3.5}, blocks: true})
	}
	g := newTestGrid(t, 10, terrain, world)

	preds := PlacementPredicates{Water: WaterAbove, Slope: SlopeRange{Min: 0, Max: 25}}
	for i := 0; i < 300; i++ {
		pos, ok := g.GetRandomPosMatching(preds)
		require.True(t, ok)

		f, inBounds := g.Field(g.WorldToTile(pos.XZ()))
		require.True(t, inBounds)
		assert.False(t, f.IsUsed, "Занятая клетка не должна выбираться")
		assert.Greater(t, f.Height, testWaterLevel, "Клетка должна быть выше воды")
		assert.True(t, preds.Slope.Contains(f.Slope), "Уклон %v вне диапазона", f.Slope)
		assert.Equal(t, f.Position, pos)
	}
}

func TestGetRandomPosMatching_WaterBelow(t *testing.T) {
	terrain := newStubTerrain()
	terrain.heights[GridCoord{X: 3, Y: 4}] = 2
	g := newTestGrid(t, 6, terrain, nil)

	for i := 0; i < 20; i++ {
		pos, ok := g.GetRandomPosMatching(PlacementPredicates{Water: WaterBelow, Slope: AnySlope})
		require.True(t, ok, "Единственная подходящая клетка должна находиться всегда")
		assert.Equal(t, GridCoord{X: 3, Y: 4}, g.WorldToTile(pos.XZ()))
	}
}

func TestGetRandomPosMatching_GroundCategory(t *testing.T) {
	terrain := newStubTerrain()
	terrain.ground[GridCoord{X: 1, Y: 1}] = GroundSand
	terrain.ground[GridCoord{X: 2, Y: 2}] = GroundRock
	g := newTestGrid(t, 4, terrain, nil)

	for i := 0; i < 20; i++ {
		pos, ok := g.GetRandomPosMatching(PlacementPredicates{Slope: AnySlope, Ground: Grounds(GroundSand, GroundRock)})
		require.True(t, ok)
		tile := g.WorldToTile(pos.XZ())
		assert.Contains(t, []GridCoord{{X: 1, Y: 1}, {X: 2, Y: 2}}, tile)
	}
}

func TestGetRandomPosMatching_GroundLookedUpOnlyWhenNeeded(t *testing.T) {
	terrain := newStubTerrain()
	g := newTestGrid(t, 8, terrain, nil)

	g.GetRandomPosMatching(PlacementPredicates{Slope: AnySlope})
	assert.Equal(t, 0, terrain.groundCalls, "Без ограничения по грунту ландшафт не опрашивается")

	g.GetRandomPosMatching(PlacementPredicates{Water: WaterBelow, Slope: AnySlope, Ground: Grounds(GroundGrass)})
	assert.Equal(t, 0, terrain.groundCalls, "Грунт проверяется только после остальных условий")
}

func TestGetRandomPosMatching_NoneMatches(t *testing.T) {
	g := newTestGrid(t, 5, newStubTerrain(), nil)

	_, ok := g.GetRandomPosMatching(PlacementPredicates{Water: WaterBelow, Slope: AnySlope})
	assert.False(t, ok)
	assert.Equal(t, uint64(1), g.Stats().RandomMisses)
}

func TestGetRandomPosMatching_SpreadsAcrossCalls(t *testing.T) {
	g := newTestGrid(t, 10, newStubTerrain(), nil)

	seen := make(map[GridCoord]struct{})
	for i := 0; i < 50; i++ {
		pos, ok := g.GetRandomPosMatching(PlacementPredicates{Slope: AnySlope})
		require.True(t, ok)
		seen[g.WorldToTile(pos.XZ())] = struct{}{}
	}
	assert.Greater(t, len(seen), 10, "Повторные вызовы не должны залипать на одних и тех же клетках")
}

func TestGetRandomPosMatching_UseFieldAtExcludesTile(t *testing.T) {
	g := newTestGrid(t, 3, newStubTerrain(), &stubWorld{})

	picked := make(map[GridCoord]struct{})
	for i := 0; i < 9; i++ {
		pos, ok := g.GetRandomPosMatching(PlacementPredicates{Slope: AnySlope})
		require.True(t, ok)
		tile := g.WorldToTile(pos.XZ())
		_, dup := picked[tile]
		require.False(t, dup, "Клетка %v выдана повторно после UseFieldAt", tile)
		picked[tile] = struct{}{}
		g.UseFieldAt(pos.XZ())
	}

	_, ok := g.GetRandomPosMatching(PlacementPredicates{Slope: AnySlope})
	assert.False(t, ok, "Все клетки заняты")
}

func TestGetRandomPosMatching_SwapsWithOtherSlot(t *testing.T) {
	g := newTestGrid(t, 4, newStubTerrain(), &stubWorld{})
	preds := PlacementPredicates{Water: WaterEither, Slope: AnySlope}

	for i := 0; i < 100; i++ {
		before := append([]int(nil), g.shuffled...)
		pos, ok := g.GetRandomPosMatching(preds)
		require.True(t, ok)

		found := g.WorldToTile(pos.XZ())
		idx := g.index(found)
		slot := -1
		for s, fieldIdx := range before {
			if fieldIdx == idx {
				slot = s
			}
		}
		require.NotEqual(t, -1, slot)
		assert.NotEqual(t, before[slot], g.shuffled[slot], "Найденный слот должен меняться с другим")
	}
}

func TestParseGrounds(t *testing.T) {
	m, err := ParseGrounds([]string{"grass", " SAND "})
	require.NoError(t, err)
	assert.True(t, m.Allows(GroundGrass))
	assert.True(t, m.Allows(GroundSand))
	assert.False(t, m.Allows(GroundRock))

	m, err = ParseGrounds(nil)
	require.NoError(t, err)
	assert.Equal(t, GroundMask(0), m)

	_, err = ParseGrounds([]string{"lava"})
	assert.Error(t, err)
}
