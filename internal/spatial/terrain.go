package spatial

import "github.com/ojrac/opensimplex-go"

// TerrainConfig shapes a rolling height field.
type TerrainConfig struct {
	Seed      int64   `json:"seed" yaml:"seed"`
	Amplitude float64 `json:"amplitude" yaml:"amplitude"`
	Scale     float64 `json:"scale" yaml:"scale"`
}

// NewTerrain returns a simplex noise height field. A zero amplitude yields a
// flat level.
func NewTerrain(cfg TerrainConfig) HeightFunc {
	if cfg.Amplitude == 0 {
		return func(float64, float64) float64 { return 0 }
	}
	scale := cfg.Scale
	if scale <= 0 {
		scale = 0.05
	}
	noise := opensimplex.New(cfg.Seed)
	return func(x, z float64) float64 {
		return cfg.Amplitude * noise.Eval2(x*scale, z*scale)
	}
}
