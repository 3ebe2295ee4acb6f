package vamana

import "github.com/vamanadb/streamvamana/models"

// Params are the Vamana graph parameters (spec §6's R/L/alpha plus the
// frozen-point and candidate-cap knobs).
type Params struct {
	// Dim is the vector dimensionality.
	Dim int
	// DistanceMetric selects distance.MetricL2 or distance.MetricMIPS.
	DistanceMetric string
	// DegreeBound (R) is the hard out-degree bound, default 64.
	DegreeBound int
	// SearchSize (L) is the build-time beam width, default 100. Must be >= DegreeBound.
	SearchSize int
	// Alpha (>= 1.0) is the prune diversity parameter, default 1.2.
	Alpha float32
	// CandidateCap (C) bounds how far a neighbour's out-degree may grow
	// transiently before it is pruned back, default 500.
	CandidateCap int
	// NumFrozenPoints is the number of permanent entry-point slots, default 1.
	// Overridable the way TTS_NUM_FROZEN did in the source this was
	// distilled from, but as this explicit Params field rather than a
	// process environment variable.
	NumFrozenPoints int
	// StartPointNorm is the norm of the random frozen vector used when no
	// initial batch is available to compute a medoid.
	StartPointNorm float32
	// Capacity is the maximum number of regular (non-frozen) points the
	// index can hold.
	Capacity int
}

// DefaultParams mirrors the driver configuration defaults in spec §6.
func DefaultParams(dim, capacity int) Params {
	return Params{
		Dim:             dim,
		DistanceMetric:  "l2",
		DegreeBound:     64,
		SearchSize:      100,
		Alpha:           1.2,
		CandidateCap:    500,
		NumFrozenPoints: 1,
		Capacity:        capacity,
	}
}

// Validate checks the parameters the driver must reject before building an
// index (spec §6's validation rules plus the structural constraints implied
// by the component design).
func (p Params) Validate() error {
	if p.Dim <= 0 {
		return models.NewError(models.ErrInvalidConfig, "dim must be positive, got %d", p.Dim)
	}
	if p.DegreeBound <= 0 {
		return models.NewError(models.ErrInvalidConfig, "R must be positive, got %d", p.DegreeBound)
	}
	if p.SearchSize < p.DegreeBound {
		return models.NewError(models.ErrInvalidConfig, "L (%d) must be >= R (%d)", p.SearchSize, p.DegreeBound)
	}
	if p.Alpha < 1.0 {
		return models.NewError(models.ErrInvalidConfig, "alpha must be >= 1.0, got %f", p.Alpha)
	}
	if p.CandidateCap < p.DegreeBound {
		return models.NewError(models.ErrInvalidConfig, "candidate cap (%d) must be >= R (%d)", p.CandidateCap, p.DegreeBound)
	}
	if p.NumFrozenPoints <= 0 {
		return models.NewError(models.ErrInvalidConfig, "at least one frozen point is required")
	}
	if p.Capacity <= 0 {
		return models.NewError(models.ErrInvalidConfig, "capacity must be positive, got %d", p.Capacity)
	}
	return nil
}
