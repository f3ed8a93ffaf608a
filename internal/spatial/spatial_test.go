package spatial

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"easy-ai/server/internal/geom"
)

func wall() Box {
	return NewBox("wall", geom.V(4, 0, -1), geom.V(6, 3, 1))
}

func TestBoxOracleLineOfSight(t *testing.T) {
	oracle := NewBoxOracle([]Box{wall()})

	assert.False(t, oracle.HasLineOfSight(geom.V(0, 1, 0), geom.V(10, 1, 0)), "segment through the wall")
	assert.True(t, oracle.HasLineOfSight(geom.V(0, 1, 3), geom.V(10, 1, 3)), "segment beside the wall")
	assert.True(t, oracle.HasLineOfSight(geom.V(0, 5, 0), geom.V(10, 5, 0)), "segment above the wall")
}

func TestBoxOracleCapsuleUsesRadius(t *testing.T) {
	oracle := NewBoxOracle([]Box{wall()})
	a, b := geom.V(0, 1, 1.5), geom.V(10, 1, 1.5)

	assert.True(t, oracle.SweepCapsule(a, b, 0.25))
	assert.False(t, oracle.SweepCapsule(a, b, 0.75))
}

func TestClearLiftsEndpoints(t *testing.T) {
	low := NewBox("kerb", geom.V(4, 0, -1), geom.V(6, 0.2, 1))
	oracle := NewBoxOracle([]Box{low})
	a, b := geom.V(0, 0, 0), geom.V(10, 0, 0)

	assert.False(t, Clear(oracle, a, b, 0))
	// A capsule resting on the ground always grazes a kerb it crosses.
	assert.False(t, Clear(oracle, a, b, 1))
	assert.True(t, Clear(oracle, geom.V(0, 0, 3), geom.V(10, 0, 3), 1))
	assert.True(t, Clear(nil, a, b, 1))
}

func TestLevelGround(t *testing.T) {
	level := Level{
		Terrain:   func(x, z float64) float64 { return 0.5 },
		Obstacles: []Box{wall()},
	}

	height, ok := level.Ground(0, 0, -1, 5)
	require.True(t, ok)
	assert.Equal(t, 0.5, height)

	_, ok = level.Ground(5, 0, -1, 5)
	assert.False(t, ok, "column covered by an obstacle")

	_, ok = level.Ground(0, 0, 1, 5)
	assert.False(t, ok, "terrain below the floor")
}

func TestPhysicsOracleMatchesBoxes(t *testing.T) {
	oracle := NewPhysicsOracle([]Box{wall()})

	assert.False(t, oracle.HasLineOfSight(geom.V(0, 0, 0), geom.V(10, 0, 0)))
	assert.True(t, oracle.HasLineOfSight(geom.V(0, 0, 5), geom.V(10, 0, 5)))
	assert.True(t, oracle.HasLineOfSight(geom.V(1, 0, 1), geom.V(1, 0, 1)), "zero length ray")
	assert.False(t, oracle.SweepCapsule(geom.V(0, 0, 1.5), geom.V(10, 0, 1.5), 0.75))
	assert.True(t, oracle.SweepCapsule(geom.V(0, 0, 3), geom.V(10, 0, 3), 0.75))
}

func TestTerrainDeterministic(t *testing.T) {
	a := NewTerrain(TerrainConfig{Seed: 7, Amplitude: 2})
	b := NewTerrain(TerrainConfig{Seed: 7, Amplitude: 2})
	for _, p := range [][2]float64{{0, 0}, {3.5, 9}, {-12, 4}} {
		assert.Equal(t, a(p[0], p[1]), b(p[0], p[1]))
		assert.LessOrEqual(t, a(p[0], p[1]), 2.0+1e-9)
	}
	flat := NewTerrain(TerrainConfig{})
	assert.Equal(t, 0.0, flat(10, 10))
}
