package rectify

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"runtime"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ironsheep/docscan-mcp/internal/contour"
	"github.com/ironsheep/docscan-mcp/internal/detection"
	"github.com/ironsheep/docscan-mcp/internal/geometry"
	"github.com/ironsheep/docscan-mcp/internal/imaging"
	"github.com/ironsheep/docscan-mcp/internal/metrics"
)

// State is a step of the two-tier rectification state machine.
type State int

const (
	// StateStart is a run that has not looked at the image yet.
	StateStart State = iota
	// StateFiducialAttempt searches for nested-square markers.
	StateFiducialAttempt
	// StateFallbackAttempt searches for the largest convex quadrilateral.
	StateFallbackAttempt
	// StateRectified is terminal: a page was warped and binarised.
	StateRectified
	// StateFailed is terminal: neither tier produced usable corners.
	StateFailed
)

var stateNames = [...]string{"start", "fiducial_attempt", "fallback_attempt", "rectified", "failed"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

// MarshalText renders the state by name in JSON output.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Tier names the detection path that produced the corners.
type Tier string

const (
	TierNone     Tier = ""         // no corners found
	TierFiducial Tier = "fiducial" // corners from the page markers
	TierFallback Tier = "fallback" // corners from the largest rectangle
)

// Result is the outcome of one Rectify call. When State is StateFailed,
// Rectified and Annotated both hold the unmodified input and Err explains
// why.
type Result struct {
	Rectified image.Image `json:"-"`
	Annotated image.Image `json:"-"`

	State State `json:"state"`
	Tier  Tier  `json:"tier,omitempty"`

	// Corners are the source corners, top-left first.
	Corners []geometry.Point `json:"corners,omitempty"`
	Plan    *Plan            `json:"plan,omitempty"`

	FocusPoints int    `json:"focus_points"`
	Retries     int    `json:"fallback_retries"`
	RunID       string `json:"run_id"`

	Err error `json:"-"`
}

// OK reports whether the run produced a rectified page.
func (r Result) OK() bool {
	return r.State == StateRectified
}

// Detection is what Detect found without rendering anything.
type Detection struct {
	FocusPoints []detection.FocusPoint `json:"focus_points"`
	Corners     []geometry.Point       `json:"corners,omitempty"`
	Tier        Tier                   `json:"tier,omitempty"`
	Contours    int                    `json:"contours"`
	Err         error                  `json:"-"`
}

// Pipeline rectifies photographed documents. It holds only immutable
// configuration and a stateless Vision, so one Pipeline may serve many
// goroutines.
type Pipeline struct {
	vision     Vision
	cfg        Config
	classifier detection.Classifier
	overlay    color.NRGBA
	logger     *zap.Logger
	metrics    *metrics.Metrics
}

// New validates cfg and builds a pipeline. logger and m may be nil.
func New(v Vision, cfg Config, logger *zap.Logger, m *metrics.Metrics) (*Pipeline, error) {
	if v == nil {
		return nil, errors.New("rectify: nil vision backend")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	overlay, err := imaging.ParseColor(cfg.OverlayColor)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Pipeline{
		vision:     v,
		cfg:        cfg,
		classifier: cfg.Classifier(v),
		overlay:    overlay,
		logger:     logger,
		metrics:    m,
	}, nil
}

// Config returns the configuration the pipeline runs with.
func (p *Pipeline) Config() Config {
	return p.cfg
}

// WithConfig returns a pipeline that shares p's backend, logger and metrics
// but runs with cfg.
func (p *Pipeline) WithConfig(cfg Config) (*Pipeline, error) {
	return New(p.vision, cfg, p.logger, p.metrics)
}

// scene is everything the analysis stage extracts from one image.
type scene struct {
	forest      contour.Forest
	focusPoints []detection.FocusPoint
}

func (p *Pipeline) analyze(ctx context.Context, img image.Image, log *zap.Logger) (scene, error) {
	edges, err := p.vision.DetectEdges(img, p.cfg.EdgeLow, p.cfg.EdgeHigh, p.cfg.EdgeAperture)
	if err != nil {
		return scene{}, fmt.Errorf("edge detection: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return scene{}, err
	}

	forest, err := p.vision.ExtractContours(edges)
	if err != nil {
		return scene{}, fmt.Errorf("contour extraction: %w", err)
	}
	forest = forest.Map(func(c geometry.Contour) geometry.Contour {
		return p.vision.Approximate(c, p.cfg.PolyTolerance)
	})
	if err := ctx.Err(); err != nil {
		return scene{}, err
	}

	groups := detection.GroupHierarchy(forest)
	fps, skipped := detection.FindFocusPoints(groups, p.classifier, p.cfg.InnerBorderWindow)
	log.Debug("contours analysed",
		zap.Int("contours", forest.Len()),
		zap.Int("groups", len(groups)),
		zap.Int("focus_points", len(fps)),
		zap.Int("discarded_groups", skipped))

	return scene{forest: forest, focusPoints: fps}, nil
}

// fiducialCorners picks and orders the marker corners.
func (p *Pipeline) fiducialCorners(s scene) ([4]geometry.Point, error) {
	var out [4]geometry.Point
	corners, err := detection.SelectCorners(s.focusPoints, p.classifier)
	if err != nil {
		return out, err
	}
	ordered := detection.OrderCorners(corners, detection.Reference(corners))
	for i := range out {
		out[i] = ordered[i].Center
	}
	return out, nil
}

// fallbackCandidates returns every rectangle that encloses all focus point
// centres, largest first.
func (p *Pipeline) fallbackCandidates(s scene) []geometry.Contour {
	type candidate struct {
		contour geometry.Contour
		area    float64
	}

	var cands []candidate
	for _, c := range s.forest.Contours {
		if !p.classifier.IsRectangle(c) || !p.enclosesAll(c, s.focusPoints) {
			continue
		}
		if area := p.vision.Area(c); area > 0 {
			cands = append(cands, candidate{contour: c, area: area})
		}
	}
	sort.SliceStable(cands, func(i, j int) bool {
		return cands[i].area > cands[j].area
	})

	out := make([]geometry.Contour, len(cands))
	for i, c := range cands {
		out[i] = c.contour
	}
	return out
}

func (p *Pipeline) enclosesAll(c geometry.Contour, fps []detection.FocusPoint) bool {
	for _, fp := range fps {
		if !p.vision.Contains(c, fp.Center) {
			return false
		}
	}
	return true
}

// orderQuad orders a fallback rectangle from the vertex that gives the
// configured page orientation.
func (p *Pipeline) orderQuad(c geometry.Contour) [4]geometry.Point {
	return [4]geometry.Point(detection.OrderPoints(c, detection.QuadReference(c, p.cfg.AspectRatio)))
}

type rendering struct {
	rectified image.Image
	annotated image.Image
	plan      Plan
}

// render warps, crops and thresholds the page bounded by corners.
func (p *Pipeline) render(img image.Image, corners [4]geometry.Point) (rendering, error) {
	plan, err := NewPlan(corners)
	if err != nil {
		return rendering{}, err
	}
	if m := imaging.MarginFor(plan.Width, p.cfg.CropRatio); 2*m >= plan.Width || 2*m >= plan.Height {
		return rendering{}, fmt.Errorf("%w: crop margin %d exceeds %dx%d page", ErrDegenerateQuad, m, plan.Width, plan.Height)
	}

	warped, err := p.vision.Warp(img, plan.Source, plan.Destination, plan.Size())
	if err != nil {
		return rendering{}, fmt.Errorf("warp: %w", err)
	}
	cropped, err := imaging.CropMargin(warped, p.cfg.CropRatio)
	if err != nil {
		return rendering{}, fmt.Errorf("%w: %v", ErrDegenerateQuad, err)
	}
	out, err := p.vision.AdaptiveThreshold(cropped, p.cfg.ThresholdBlockSize, p.cfg.ThresholdConstant)
	if err != nil {
		return rendering{}, fmt.Errorf("threshold: %w", err)
	}

	return rendering{
		rectified: out,
		annotated: imaging.DrawPolygon(img, corners[:], p.overlay, p.cfg.OverlayThickness),
		plan:      plan,
	}, nil
}

// Rectify finds the document in img and returns it flattened and
// binarised. It never fails outright: a run that finds nothing usable ends in
// StateFailed with the input image returned untouched.
func (p *Pipeline) Rectify(ctx context.Context, img image.Image) (res Result) {
	start := time.Now()
	res = Result{State: StateStart, RunID: uuid.NewString()}
	log := p.logger.With(zap.String("run_id", res.RunID))
	defer func() {
		p.metrics.ObserveRun(res.State.String(), time.Since(start))
	}()

	if img == nil || img.Bounds().Empty() {
		return p.fail(log, res, img, fmt.Errorf("%w: no pixels", geometry.ErrEmptyInput))
	}
	if err := ctx.Err(); err != nil {
		return p.fail(log, res, img, err)
	}

	res.State = StateFiducialAttempt
	log.Debug("state changed", zap.Stringer("state", res.State))

	s, err := p.analyze(ctx, img, log)
	if err != nil {
		return p.fail(log, res, img, err)
	}
	res.FocusPoints = len(s.focusPoints)
	p.metrics.ObserveFocusPoints(len(s.focusPoints))

	corners, err := p.fiducialCorners(s)
	if err == nil {
		var r rendering
		if r, err = p.render(img, corners); err == nil {
			return p.succeed(log, res, TierFiducial, corners, r)
		}
	}

	res.State = StateFallbackAttempt
	log.Info("fiducial markers unusable, falling back to largest rectangle",
		zap.Int("focus_points", len(s.focusPoints)), zap.Error(err))

	cands := p.fallbackCandidates(s)
	if len(cands) == 0 {
		return p.fail(log, res, img, fmt.Errorf("%w: no rectangle encloses the focus points", ErrDegenerateQuad))
	}

	attempts := min(len(cands), 1+p.cfg.FallbackRetries)
	for i := 0; i < attempts; i++ {
		if err := ctx.Err(); err != nil {
			return p.fail(log, res, img, err)
		}
		if i > 0 {
			res.Retries++
			p.metrics.IncFallbackRetry()
		}

		corners := p.orderQuad(cands[i])
		var r rendering
		if r, err = p.render(img, corners); err == nil {
			return p.succeed(log, res, TierFallback, corners, r)
		}
		log.Debug("fallback candidate rejected", zap.Int("candidate", i), zap.Error(err))
	}
	return p.fail(log, res, img, err)
}

func (p *Pipeline) succeed(log *zap.Logger, res Result, tier Tier, corners [4]geometry.Point, r rendering) Result {
	res.State = StateRectified
	res.Tier = tier
	res.Corners = append([]geometry.Point(nil), corners[:]...)
	res.Plan = &r.plan
	res.Rectified = r.rectified
	res.Annotated = r.annotated
	log.Debug("document rectified",
		zap.String("tier", string(tier)),
		zap.Int("width", r.plan.Width),
		zap.Int("height", r.plan.Height))
	return res
}

func (p *Pipeline) fail(log *zap.Logger, res Result, img image.Image, err error) Result {
	res.State = StateFailed
	res.Rectified = img
	res.Annotated = img
	res.Err = err
	log.Warn("rectification failed", zap.Error(err))
	return res
}

// Detect runs both detection tiers without warping anything.
func (p *Pipeline) Detect(ctx context.Context, img image.Image) Detection {
	if img == nil || img.Bounds().Empty() {
		return Detection{Err: fmt.Errorf("%w: no pixels", geometry.ErrEmptyInput)}
	}

	s, err := p.analyze(ctx, img, p.logger)
	if err != nil {
		return Detection{Err: err}
	}
	d := Detection{FocusPoints: s.focusPoints, Contours: s.forest.Len()}

	corners, err := p.fiducialCorners(s)
	if err == nil {
		d.Corners, d.Tier = corners[:], TierFiducial
		return d
	}

	if cands := p.fallbackCandidates(s); len(cands) > 0 {
		corners = p.orderQuad(cands[0])
		d.Corners, d.Tier = corners[:], TierFallback
		return d
	}
	d.Err = fmt.Errorf("%w: %v; no rectangle encloses the focus points", ErrDegenerateQuad, err)
	return d
}

// RectifyBatch rectifies imgs with at most concurrency runs in flight. A
// concurrency below 1 uses GOMAXPROCS. Results are in input order.
func (p *Pipeline) RectifyBatch(ctx context.Context, imgs []image.Image, concurrency int) []Result {
	if concurrency < 1 {
		concurrency = runtime.GOMAXPROCS(0)
	}
	results := make([]Result, len(imgs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, img := range imgs {
		i, img := i, img
		g.Go(func() error {
			results[i] = p.Rectify(gctx, img)
			return nil
		})
	}
	_ = g.Wait()
	return results
}
