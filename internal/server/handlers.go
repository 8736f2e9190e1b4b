package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"

	"github.com/Ondrej-Sulc/cerebro-roster/internal/imaging"
	"github.com/Ondrej-Sulc/cerebro-roster/internal/phash"
	"github.com/Ondrej-Sulc/cerebro-roster/internal/pipeline"
	"github.com/Ondrej-Sulc/cerebro-roster/internal/roster"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "roster_scan", "roster_crop").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

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
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	switch name {
	// Screenshot
	case "roster_load":
		return s.handleRosterLoad(args)
	case "roster_crop":
		return s.handleRosterCrop(args)
	case "roster_sample_color":
		return s.handleRosterSampleColor(args)

	// Recognition
	case "roster_scan":
		return s.handleRosterScan(ctx, args)
	case "roster_layout":
		return s.handleRosterLayout(ctx, args)

	// Hashing
	case "roster_hash_region":
		return s.handleRosterHashRegion(args)
	case "roster_hash_distance":
		return s.handleRosterHashDistance(args)
	case "roster_reference_hash":
		return s.handleRosterReferenceHash(ctx, args)

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
// On marshal failure it returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// === Screenshot Handlers ===

type pathArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleRosterLoad(args json.RawMessage) (interface{}, error) {
	var a pathArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	shot, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	return shot.Info(), nil
}

type regionArgs struct {
	Path  string  `json:"path"`
	X1    int     `json:"x1"`
	Y1    int     `json:"y1"`
	X2    int     `json:"x2"`
	Y2    int     `json:"y2"`
	Scale float64 `json:"scale"`
}

func (a regionArgs) rect() image.Rectangle {
	return image.Rect(a.X1, a.Y1, a.X2, a.Y2)
}

func (s *Server) handleRosterCrop(args json.RawMessage) (interface{}, error) {
	var a regionArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Scale == 0 {
		a.Scale = 1.0
	}
	shot, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	return imaging.Crop(shot.Image, a.rect(), a.Scale)
}

type sampleColorArgs struct {
	Path string `json:"path"`
	X    int    `json:"x"`
	Y    int    `json:"y"`
}

func (s *Server) handleRosterSampleColor(args json.RawMessage) (interface{}, error) {
	var a sampleColorArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	shot, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	return imaging.SampleColor(shot.Image, a.X, a.Y)
}

// === Recognition Handlers ===

type scanArgs struct {
	Path  string `json:"path"`
	Debug bool   `json:"debug"`
}

// ScanResult is the roster_scan payload.
type ScanResult struct {
	Cells      []roster.Cell   `json:"cells"`
	AvgColDist float64         `json:"avgColDist"`
	CellDims   roster.CellDims `json:"cellDims"`
	HeaderMinY *int            `json:"headerMinY,omitempty"`
	Identified int             `json:"identified"`

	// DebugImageBase64 is the annotated overlay, set in debug mode.
	DebugImageBase64 string `json:"debugImageBase64,omitempty"`
	MimeType         string `json:"mimeType,omitempty"`
}

func (s *Server) handleRosterScan(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a scanArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	shot, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}

	res, err := s.svc.Process(ctx, shot.Data, pipeline.Options{Debug: a.Debug})
	if err != nil {
		return nil, err
	}

	out := &ScanResult{
		Cells:      res.Grid,
		AvgColDist: res.Layout.AvgColDist,
		CellDims:   res.Layout.CellDims,
		HeaderMinY: res.Layout.HeaderMinY,
	}
	for i := range res.Grid {
		if res.Grid[i].Identified() {
			out.Identified++
		}
	}
	if len(res.DebugImage) > 0 {
		out.DebugImageBase64 = base64.StdEncoding.EncodeToString(res.DebugImage)
		out.MimeType = "image/png"
	}
	return out, nil
}

func (s *Server) handleRosterLayout(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a pathArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	shot, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	return s.svc.Layout(ctx, shot.Data)
}

// === Hashing Handlers ===

// HashResult carries a hash in hex form.
type HashResult struct {
	Hash string `json:"hash"`
	Bits int    `json:"bits"`
}

func (s *Server) handleRosterHashRegion(args json.RawMessage) (interface{}, error) {
	var a regionArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	shot, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	h, err := phash.FromImage(shot.Image, a.rect())
	if err != nil {
		return nil, err
	}
	return &HashResult{Hash: h.String(), Bits: phash.Bits}, nil
}

type hashDistanceArgs struct {
	A string `json:"a"`
	B string `json:"b"`
}

// DistanceResult is the roster_hash_distance payload.
type DistanceResult struct {
	Distance        int  `json:"distance"`
	Bits            int  `json:"bits"`
	Threshold       int  `json:"threshold"`
	WithinThreshold bool `json:"withinThreshold"`
}

func (s *Server) handleRosterHashDistance(args json.RawMessage) (interface{}, error) {
	var a hashDistanceArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	ha, err := phash.Parse(a.A)
	if err != nil {
		return nil, fmt.Errorf("hash a: %w", err)
	}
	hb, err := phash.Parse(a.B)
	if err != nil {
		return nil, fmt.Errorf("hash b: %w", err)
	}

	d := phash.Distance(ha, hb)
	threshold := s.svc.Geometry().MatchThreshold
	return &DistanceResult{
		Distance:        d,
		Bits:            phash.Bits,
		Threshold:       threshold,
		WithinThreshold: d <= threshold,
	}, nil
}

type referenceHashArgs struct {
	Name string `json:"name"`
}

// ReferenceHashResult is the roster_reference_hash payload.
type ReferenceHashResult struct {
	Name  string       `json:"name"`
	Class roster.Class `json:"class"`
	Hash  string       `json:"hash"`
}

func (s *Server) handleRosterReferenceHash(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a referenceHashArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if s.refs == nil || s.finder == nil {
		return nil, errors.New("no champion catalog configured")
	}
	champ, ok := s.finder.Find(a.Name)
	if !ok {
		return nil, fmt.Errorf("unknown champion: %s", a.Name)
	}
	h, err := s.refs.ReferenceHash(ctx, champ)
	if err != nil {
		return nil, err
	}
	return &ReferenceHashResult{Name: champ.Name, Class: champ.Class, Hash: h.String()}, nil
}
