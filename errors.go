package watergo

import (
	"errors"

	"github.com/voxelize/watergo/affinity"
	"github.com/voxelize/watergo/agglo"
	"github.com/voxelize/watergo/score"
)

var (
	// ErrNoThresholds is returned when no threshold is supplied.
	ErrNoThresholds = errors.New("at least one threshold is required")

	// ErrFragmentCount is returned when a pre-supplied fragmentation does
	// not cover the grid exactly.
	ErrFragmentCount = errors.New("pre-supplied fragmentation must have one label per voxel")

	// ErrUnsortedThresholds mirrors agglo.ErrUnsortedThresholds: thresholds
	// must be supplied in ascending order; the engine fails fast rather than
	// sorting silently, so outputs always map back to the caller's order.
	ErrUnsortedThresholds = agglo.ErrUnsortedThresholds

	// ErrInvalidThreshold mirrors agglo.ErrInvalidThreshold.
	ErrInvalidThreshold = agglo.ErrInvalidThreshold
)

// ErrShapeMismatch indicates affinity arrays inconsistent with the grid
// shape. The original underlying error can be accessed via errors.As.
type ErrShapeMismatch = affinity.ErrShapeMismatch

// ErrInvalidWeight indicates a non-finite or out-of-range affinity value.
type ErrInvalidWeight = affinity.ErrInvalidWeight

// ErrInvalidShape indicates an empty shape or a non-positive dimension.
type ErrInvalidShape = affinity.ErrInvalidShape

// ErrInvalidPolicy indicates an unknown or malformed score policy.
type ErrInvalidPolicy = score.ErrInvalidPolicy
