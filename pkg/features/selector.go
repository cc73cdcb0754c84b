package features

import "separateclumps/internal/models"

// Thresholds decide which objects are treated as clumps
type Thresholds struct {
	// MaxSolidity: objects at or above it are considered convex enough
	MaxSolidity float64

	// MinFormFactor: objects at or below it are considered round enough
	MinFormFactor float64

	// MinArea and MaxArea bound the filled area, both exclusive
	MinArea int
	MaxArea int
}

// IsClump reports whether an object is a cutting candidate:
// solidity below MaxSolidity, form factor above MinFormFactor and
// MinArea < area < MaxArea.
func (t Thresholds) IsClump(r models.ObjectRecord) bool {
	return r.Solidity < t.MaxSolidity &&
		r.FormFactor > t.MinFormFactor &&
		r.Area > t.MinArea &&
		r.Area < t.MaxArea
}

// Select splits records into clump candidates and the rest, keeping order
func Select(records []models.ObjectRecord, t Thresholds) (clumps, others []models.ObjectRecord) {
	for _, r := range records {
		if t.IsClump(r) {
			clumps = append(clumps, r)
		} else {
			others = append(others, r)
		}
	}
	return clumps, others
}
