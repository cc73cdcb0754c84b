package separation

import "separateclumps/internal/models"

// Debug is the diagnostic payload collected when Params.Debug is set.
// It holds enough to redraw the selection feature maps, the curvature of
// every analysed boundary and the candidate and accepted cuts.
type Debug struct {
	Width  int
	Height int
	Passes []PassDebug
}

// PassDebug holds the diagnostics of one pass. Labels is the label image
// the pass worked on.
type PassDebug struct {
	Pass    int
	Labels  *models.LabelImage
	Objects []ObjectDebug
}

// ObjectDebug describes one object of a pass. Boundary data and cuts are
// only present for clump candidates and use crop coordinates: add Origin
// to get image coordinates.
type ObjectDebug struct {
	Record models.ObjectRecord
	Clump  bool

	Origin     models.Point
	Points     []models.PerimeterPoint
	Regions    []models.Region
	Candidates []models.CutCandidate
	Accepted   []models.CutCandidate
	Warning    string
}
