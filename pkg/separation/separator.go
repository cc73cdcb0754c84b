// Package separation splits clumps of fused objects in a segmentation
// mask into their parts.
//
// Each pass measures every object, picks the ones whose shape suggests a
// clump, analyses the curvature of their smoothed boundary, proposes cuts
// between pairs of concave regions, keeps the cheapest conflict-free cuts
// and applies them. Fragments that still look like clumps are examined
// again in the next pass. Objects that are never cut come back unchanged.
package separation

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"

	"separateclumps/internal/models"
	"separateclumps/pkg/cutting"
	"separateclumps/pkg/features"
	"separateclumps/pkg/labeling"
	"separateclumps/pkg/morphology"
	"separateclumps/pkg/perimeter"
)

// PassReport summarises one cutting pass
type PassReport struct {
	Pass int

	// Objects is the number of objects measured in the pass
	Objects int

	// Candidates is the number of objects selected as clumps
	Candidates int

	// Cuts is the number of cuts applied
	Cuts int

	// Skipped is the number of clumps left uncut because of the region cap
	Skipped int

	// MeanArea is the mean area of the measured objects
	MeanArea float64

	Duration time.Duration
}

// Result is the outcome of Process
type Result struct {
	// Labels holds the separated objects, labelled 1..Count in raster
	// order of each object's first pixel
	Labels *models.LabelImage
	Count  int

	Passes   []PassReport
	Warnings []string

	// Debug is nil unless Params.Debug is set
	Debug *Debug
}

// Separator runs the clump separation pipeline. It is safe for
// concurrent use; each Process call works on its own data.
type Separator struct {
	params Params
	log    logrus.FieldLogger
}

// New validates params and returns a Separator. A nil logger discards
// log output.
func New(params Params, logger logrus.FieldLogger) (*Separator, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = l
	}
	return &Separator{params: params, log: logger}, nil
}

// Params returns the parameters the separator was created with
func (s *Separator) Params() Params {
	return s.params
}

// objectOutcome is the result of processing one clump
type objectOutcome struct {
	label   int32
	origin  models.Point
	cuts    []models.CutCandidate
	cutMask *models.Mask
	warning string
	debug   *ObjectDebug
}

// Process separates the clumps in mask. Every non-zero label is treated
// as foreground and objects are the 8-connected components of it.
// intensity may be nil, which disables the intensity cost and makes
// watershed lines follow the chord; otherwise it must match the mask size.
//
// Holes are filled before an object is measured, analysed and checked
// for feasible cuts, but accepted cuts clear the raw pixels. A cut through
// a holed object may therefore leave fragments smaller than MinCutArea.
//
// The context is checked between passes and before each object.
func (s *Separator) Process(ctx context.Context, mask *models.LabelImage, intensity *models.IntensityImage) (*Result, error) {
	if mask == nil {
		return nil, fmt.Errorf("%w: nil mask", ErrTypeMismatch)
	}
	if err := mask.Validate(); err != nil {
		return nil, err
	}
	if intensity != nil {
		if err := intensity.Validate(); err != nil {
			return nil, err
		}
		if intensity.Width != mask.Width || intensity.Height != mask.Height {
			return nil, fmt.Errorf("%w: intensity image is %dx%d, mask is %dx%d",
				ErrTypeMismatch, intensity.Width, intensity.Height, mask.Width, mask.Height)
		}
	}

	p := s.params
	w, h := mask.Width, mask.Height
	res := &Result{}
	if p.Debug {
		res.Debug = &Debug{Width: w, Height: h}
	}

	work, n := labeling.Relabel(mask)
	final := models.NewMask(w, h)
	// pixels of final objects that came out of a cut
	fragments := models.NewMask(w, h)

	for pass := 1; pass <= p.Passes && n > 0; pass++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("pass %d: %w", pass, err)
		}
		start := time.Now()
		passLog := s.log.WithField("pass", pass)
		passLog.WithField("objects", n).Debug("Starting pass")

		comps := labeling.Components(work)
		records := features.Extract(work)
		clumps, others := features.Select(records, p.Thresholds)
		fromCut := pass > 1

		for _, rec := range others {
			finalize(comps[rec.Label-1], final, fragments, fromCut)
		}

		outcomes, err := s.runPass(ctx, work, intensity, clumps)
		if err != nil {
			return nil, fmt.Errorf("pass %d: %w", pass, err)
		}

		report := PassReport{Pass: pass, Objects: len(records), Candidates: len(clumps), MeanArea: meanArea(records)}
		next := models.NewMask(w, h)
		for _, out := range outcomes {
			comp := comps[out.label-1]
			if out.warning != "" {
				report.Skipped++
				res.Warnings = append(res.Warnings, fmt.Sprintf("pass %d: %s", pass, out.warning))
				passLog.WithField("label", out.label).Warn(out.warning)
			}
			if len(out.cuts) == 0 {
				finalize(comp, final, fragments, fromCut)
				continue
			}
			report.Cuts += len(out.cuts)
			for _, q := range comp.Pixels {
				if !out.cutMask.At(q.Row-out.origin.Row, q.Col-out.origin.Col) {
					next.Set(q.Row, q.Col, true)
				}
			}
		}

		if res.Debug != nil {
			res.Debug.Passes = append(res.Debug.Passes, passDebug(pass, work, records, clumps, outcomes))
		}

		work, n = labeling.Label(next)
		report.Duration = time.Since(start)
		res.Passes = append(res.Passes, report)
		passLog.WithFields(logrus.Fields{
			"objects":    report.Objects,
			"candidates": report.Candidates,
			"cuts":       report.Cuts,
			"skipped":    report.Skipped,
			"meanArea":   report.MeanArea,
			"duration":   report.Duration,
		}).Info("Pass finished")
	}

	// whatever is left came out of a cut in the last pass
	for i, l := range work.Labels {
		if l != 0 {
			final.Pix[i] = true
			fragments.Pix[i] = true
		}
	}

	smoothFragments(final, fragments, p.FilterSize)
	res.Labels, res.Count = labeling.Label(final)
	s.log.WithFields(logrus.Fields{
		"objects":  res.Count,
		"passes":   len(res.Passes),
		"warnings": len(res.Warnings),
	}).Info("Separation finished")
	return res, nil
}

// runPass processes the clumps of one pass in a worker pool. Outcomes
// are stored by clump index, so the merge order does not depend on
// scheduling.
func (s *Separator) runPass(ctx context.Context, work *models.LabelImage, intensity *models.IntensityImage, clumps []models.ObjectRecord) ([]objectOutcome, error) {
	outcomes := make([]objectOutcome, len(clumps))
	if len(clumps) == 0 {
		return outcomes, nil
	}

	workers := s.params.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(clumps) {
		workers = len(clumps)
	}

	tasks := make(chan int, workers*2)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range tasks {
				if ctx.Err() != nil {
					continue
				}
				outcomes[idx] = s.processObject(work, intensity, clumps[idx])
			}
		}()
	}

feed:
	for i := range clumps {
		select {
		case <-ctx.Done():
			break feed
		case tasks <- i:
		}
	}
	close(tasks)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

// processObject analyses one clump in a crop around its bounding box and
// returns the cuts to apply, if any
func (s *Separator) processObject(work *models.LabelImage, intensity *models.IntensityImage, rec models.ObjectRecord) objectOutcome {
	p := s.params
	box := rec.Bounds.Pad(p.FilterSize + 2)
	out := objectOutcome{
		label:  rec.Label,
		origin: models.Point{Row: box.MinRow, Col: box.MinCol},
	}

	raw := labeling.Crop(work, rec.Label, box)
	filled := labeling.FillHoles(raw)
	smoothed := morphology.Smooth(filled, p.FilterSize, p.Thresholds.MinArea)
	analysis := perimeter.Analyze(smoothed, p.perimeterOptions())

	var crop *models.IntensityImage
	if intensity != nil {
		crop = labeling.CropIntensity(intensity, box)
	}

	candidates, err := cutting.Generate(cutting.Object{
		Label:     rec.Label,
		Analysis:  analysis,
		Smoothed:  smoothed,
		Original:  filled,
		Intensity: crop,
	}, p.cuttingParams())
	if err != nil {
		out.warning = err.Error()
	} else {
		out.cuts = cutting.Select(candidates, p.MaxCutsPerObject)
		if len(out.cuts) > 0 {
			out.cutMask = cutting.CutMask(box.Width(), box.Height(), out.cuts, p.DilateCuts)
		}
	}

	if p.Debug {
		out.debug = &ObjectDebug{
			Record:     rec,
			Clump:      true,
			Origin:     out.origin,
			Points:     analysis.Points,
			Regions:    analysis.Regions,
			Candidates: candidates,
			Accepted:   out.cuts,
			Warning:    out.warning,
		}
	}
	return out
}

func meanArea(records []models.ObjectRecord) float64 {
	if len(records) == 0 {
		return 0
	}
	areas := make([]float64, len(records))
	for i, r := range records {
		areas[i] = float64(r.Area)
	}
	return stat.Mean(areas, nil)
}

// finalize moves an object into the output
func finalize(comp labeling.Component, final, fragments *models.Mask, fromCut bool) {
	for _, q := range comp.Pixels {
		final.Set(q.Row, q.Col, true)
		if fromCut {
			fragments.Set(q.Row, q.Col, true)
		}
	}
}

// smoothFragments opens every fragment produced by a cut with a disk of
// radius filterSize. A fragment the opening would erase keeps its pixels.
func smoothFragments(final, fragments *models.Mask, filterSize int) {
	labels, n := labeling.Label(fragments)
	if n == 0 {
		return
	}
	for _, comp := range labeling.Components(labels) {
		box := comp.Bounds.Pad(filterSize + 1)
		crop := labeling.Crop(labels, comp.Label, box)
		opened := morphology.Open(crop, filterSize)
		if opened.Count() == 0 {
			continue
		}
		for _, q := range comp.Pixels {
			final.Set(q.Row, q.Col, opened.At(q.Row-box.MinRow, q.Col-box.MinCol))
		}
	}
}

// passDebug assembles the diagnostics of one pass in record order
func passDebug(pass int, work *models.LabelImage, records, clumps []models.ObjectRecord, outcomes []objectOutcome) PassDebug {
	pd := PassDebug{Pass: pass, Labels: work}
	byLabel := make(map[int32]*ObjectDebug, len(clumps))
	for i := range outcomes {
		if outcomes[i].debug != nil {
			byLabel[outcomes[i].label] = outcomes[i].debug
		}
	}
	for _, rec := range records {
		if d, ok := byLabel[rec.Label]; ok {
			pd.Objects = append(pd.Objects, *d)
			continue
		}
		pd.Objects = append(pd.Objects, ObjectDebug{Record: rec})
	}
	return pd
}
