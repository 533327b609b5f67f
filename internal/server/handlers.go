package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/ironsheep/docscan-mcp/internal/detection"
	"github.com/ironsheep/docscan-mcp/internal/geometry"
	"github.com/ironsheep/docscan-mcp/internal/imaging"
	"github.com/ironsheep/docscan-mcp/internal/rectify"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "image_load", "document_rectify").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

var errPathRequired = errors.New("path is required")

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		s.logger.Info("tool failed", zap.String("tool", params.Name), zap.Error(err))
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
//
// Each tool handler:
//  1. Unmarshals arguments from JSON
//  2. Applies configured defaults and per-call overrides
//  3. Loads images from cache as needed
//  4. Runs the imaging function or the rectification pipeline
//  5. Returns the result or error
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	switch name {
	// Basic Image Information
	case "image_load":
		return s.handleImageLoad(args)
	case "image_dimensions":
		return s.handleImageDimensions(args)
	case "image_edge_detect":
		return s.handleImageEdgeDetect(args)

	// Document Operations
	case "document_detect":
		return s.handleDocumentDetect(ctx, args)
	case "document_rectify":
		return s.handleDocumentRectify(ctx, args)
	case "document_rectify_batch":
		return s.handleDocumentRectifyBatch(ctx, args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// decodeArgs unmarshals tool arguments, treating a missing object as empty.
func decodeArgs(args json.RawMessage, v interface{}) error {
	if len(args) == 0 || string(args) == "null" {
		return nil
	}
	return json.Unmarshal(args, v)
}

// === Basic Image Information Handlers ===

type imageLoadArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleImageLoad(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, errPathRequired
	}
	return imaging.LoadImageInfo(s.cache, a.Path)
}

func (s *Server) handleImageDimensions(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, errPathRequired
	}
	return imaging.GetDimensions(s.cache, a.Path)
}

type imageEdgeDetectArgs struct {
	Path          string `json:"path"`
	ThresholdLow  int    `json:"threshold_low"`
	ThresholdHigh int    `json:"threshold_high"`
	Aperture      int    `json:"aperture"`
}

func (s *Server) handleImageEdgeDetect(args json.RawMessage) (interface{}, error) {
	var a imageEdgeDetectArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, errPathRequired
	}
	cfg := s.pipeline.Config()
	if a.ThresholdLow == 0 {
		a.ThresholdLow = cfg.EdgeLow
	}
	if a.ThresholdHigh == 0 {
		a.ThresholdHigh = cfg.EdgeHigh
	}
	if a.Aperture == 0 {
		a.Aperture = cfg.EdgeAperture
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	return imaging.EdgeDetect(img, a.ThresholdLow, a.ThresholdHigh, a.Aperture)
}

// === Document Handlers ===

// overrideArgs are optional per-call replacements for configured tolerances.
type overrideArgs struct {
	AngleTolerance  *float64 `json:"angle_tolerance,omitempty"`
	LengthTolerance *float64 `json:"length_tolerance,omitempty"`
	PolyTolerance   *float64 `json:"poly_tolerance,omitempty"`
	CropRatio       *float64 `json:"crop_ratio,omitempty"`
	AspectRatio     *float64 `json:"aspect_ratio,omitempty"`
}

// pipelineFor returns the server pipeline, or a copy running with the
// overridden settings.
func (s *Server) pipelineFor(o overrideArgs) (*rectify.Pipeline, error) {
	cfg := s.pipeline.Config()
	changed := false
	if o.AngleTolerance != nil {
		cfg, changed = cfg.WithAngleTolerance(*o.AngleTolerance), true
	}
	if o.LengthTolerance != nil {
		cfg, changed = cfg.WithLengthTolerance(*o.LengthTolerance), true
	}
	if o.PolyTolerance != nil {
		cfg, changed = cfg.WithPolyTolerance(*o.PolyTolerance), true
	}
	if o.CropRatio != nil {
		cfg, changed = cfg.WithCropRatio(*o.CropRatio), true
	}
	if o.AspectRatio != nil {
		cfg, changed = cfg.WithAspectRatio(*o.AspectRatio), true
	}
	if !changed {
		return s.pipeline, nil
	}
	return s.pipeline.WithConfig(cfg)
}

type documentDetectArgs struct {
	Path string `json:"path"`
	overrideArgs
}

// DocumentDetectResult describes what the detector found in one image.
type DocumentDetectResult struct {
	Path        string                 `json:"path"`
	Width       int                    `json:"width"`
	Height      int                    `json:"height"`
	Found       bool                   `json:"found"`
	Tier        rectify.Tier           `json:"tier,omitempty"`
	Corners     []geometry.Point       `json:"corners,omitempty"`
	FocusPoints []detection.FocusPoint `json:"focus_points"`
	Contours    int                    `json:"contours"`
	Error       string                 `json:"error,omitempty"`
}

func (s *Server) handleDocumentDetect(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a documentDetectArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, errPathRequired
	}
	p, err := s.pipelineFor(a.overrideArgs)
	if err != nil {
		return nil, err
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}

	d := p.Detect(ctx, img)
	b := img.Bounds()
	res := &DocumentDetectResult{
		Path:        a.Path,
		Width:       b.Dx(),
		Height:      b.Dy(),
		Found:       d.Err == nil,
		Tier:        d.Tier,
		Corners:     d.Corners,
		FocusPoints: d.FocusPoints,
		Contours:    d.Contours,
	}
	if res.FocusPoints == nil {
		res.FocusPoints = []detection.FocusPoint{}
	}
	if d.Err != nil {
		res.Error = d.Err.Error()
	}
	return res, nil
}

type documentRectifyArgs struct {
	Path        string `json:"path"`
	OutputPath  string `json:"output_path"`
	OverlayPath string `json:"overlay_path"`
	overrideArgs
}

// DocumentRectifyResult is one pipeline run as reported to the client.
type DocumentRectifyResult struct {
	Path string `json:"path"`
	rectify.Result

	// Width and Height are the final page size after cropping.
	Width  int `json:"width,omitempty"`
	Height int `json:"height,omitempty"`

	RectifiedPath   string `json:"rectified_path,omitempty"`
	OverlayPath     string `json:"overlay_path,omitempty"`
	RectifiedBase64 string `json:"rectified_base64,omitempty"`
	OverlayBase64   string `json:"overlay_base64,omitempty"`
	MimeType        string `json:"mime_type,omitempty"`

	Error string `json:"error,omitempty"`
}

func newRectifyResult(path string, r rectify.Result) *DocumentRectifyResult {
	out := &DocumentRectifyResult{Path: path, Result: r}
	if r.Err != nil {
		out.Error = r.Err.Error()
	}
	if r.OK() {
		b := r.Rectified.Bounds()
		out.Width, out.Height = b.Dx(), b.Dy()
	}
	return out
}

func (s *Server) handleDocumentRectify(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a documentRectifyArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, errPathRequired
	}
	p, err := s.pipelineFor(a.overrideArgs)
	if err != nil {
		return nil, err
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}

	r := p.Rectify(ctx, img)
	out := newRectifyResult(a.Path, r)
	if !r.OK() {
		return out, nil
	}

	if a.OutputPath != "" {
		if err := imaging.Save(r.Rectified, a.OutputPath); err != nil {
			return nil, err
		}
		out.RectifiedPath = a.OutputPath
	} else {
		if out.RectifiedBase64, err = imaging.EncodePNG(r.Rectified); err != nil {
			return nil, err
		}
		out.MimeType = "image/png"
	}

	if a.OverlayPath != "" {
		if err := imaging.Save(r.Annotated, a.OverlayPath); err != nil {
			return nil, err
		}
		out.OverlayPath = a.OverlayPath
	} else if a.OutputPath == "" {
		if out.OverlayBase64, err = imaging.EncodePNG(r.Annotated); err != nil {
			return nil, err
		}
	}
	return out, nil
}

type documentRectifyBatchArgs struct {
	Paths       []string `json:"paths"`
	OutputDir   string   `json:"output_dir"`
	Concurrency int      `json:"concurrency"`
	overrideArgs
}

// DocumentRectifyBatchResult summarises a batch run. Failed counts inputs
// that could not be loaded or rectified, and pages whose files could not be
// written; each of those carries its reason in Error.
type DocumentRectifyBatchResult struct {
	Results   []*DocumentRectifyResult `json:"results"`
	Rectified int                      `json:"rectified"`
	Failed    int                      `json:"failed"`
}

func (s *Server) handleDocumentRectifyBatch(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a documentRectifyBatchArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if len(a.Paths) == 0 {
		return nil, errors.New("paths must not be empty")
	}
	if a.OutputDir == "" {
		return nil, errors.New("output_dir is required")
	}
	if err := os.MkdirAll(a.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	p, err := s.pipelineFor(a.overrideArgs)
	if err != nil {
		return nil, err
	}
	if a.Concurrency <= 0 {
		a.Concurrency = s.batchConcurrency
	}

	out := &DocumentRectifyBatchResult{Results: make([]*DocumentRectifyResult, len(a.Paths))}

	// inputs that fail to load are reported without running the pipeline
	var (
		imgs  []image.Image
		index []int
	)
	for i, path := range a.Paths {
		img, err := s.cache.Load(path)
		if err != nil {
			out.Results[i] = &DocumentRectifyResult{
				Path:   path,
				Result: rectify.Result{State: rectify.StateFailed},
				Error:  err.Error(),
			}
			continue
		}
		imgs = append(imgs, img)
		index = append(index, i)
	}

	for k, r := range p.RectifyBatch(ctx, imgs, a.Concurrency) {
		i := index[k]
		path := a.Paths[i]
		s.cache.Evict(path)

		res := newRectifyResult(path, r)
		if r.OK() {
			stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
			if err := saveBatchOutputs(res, r, a.OutputDir, stem); err != nil {
				s.logger.Warn("failed to save batch output", zap.String("path", path), zap.Error(err))
				res.Error = err.Error()
			}
		}
		out.Results[i] = res
	}

	for _, r := range out.Results {
		if r.OK() && r.Error == "" {
			out.Rectified++
		} else {
			out.Failed++
		}
	}
	return out, nil
}

// saveBatchOutputs writes the page and overlay of one batch item. On failure
// nothing of that item is left behind and its paths stay empty.
func saveBatchOutputs(res *DocumentRectifyResult, r rectify.Result, dir, stem string) error {
	page := filepath.Join(dir, stem+"_rectified.png")
	overlay := filepath.Join(dir, stem+"_overlay.png")

	if err := imaging.Save(r.Rectified, page); err != nil {
		return err
	}
	if err := imaging.Save(r.Annotated, overlay); err != nil {
		_ = os.Remove(page)
		return err
	}
	res.RectifiedPath, res.OverlayPath = page, overlay
	return nil
}
