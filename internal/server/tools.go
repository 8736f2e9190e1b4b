package server

// Tool describes an MCP tool with its name, description, and JSON Schema for inputs.
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func pathProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Absolute path to the roster screenshot",
	}
}

func regionProperties() map[string]interface{} {
	return map[string]interface{}{
		"path": pathProperty(),
		"x1":   map[string]interface{}{"type": "integer", "description": "Left edge"},
		"y1":   map[string]interface{}{"type": "integer", "description": "Top edge"},
		"x2":   map[string]interface{}{"type": "integer", "description": "Right edge (exclusive)"},
		"y2":   map[string]interface{}{"type": "integer", "description": "Bottom edge (exclusive)"},
	}
}

// GetToolDefinitions returns all available tool definitions
func GetToolDefinitions() []Tool {
	crop := regionProperties()
	crop["scale"] = map[string]interface{}{
		"type":        "number",
		"description": "Scale factor for the output (default 1.0)",
		"default":     1.0,
	}

	return []Tool{
		{
			Name:        "roster_load",
			Description: "Load a screenshot and return its dimensions, format and file size.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{"path": pathProperty()},
				"required":   []string{"path"},
			},
		},
		{
			Name: "roster_scan",
			Description: "Recognize the champion roster grid in a screenshot. Returns one cell per card " +
				"in reading order with power rating, rank, signature level, class and the matched champion. " +
				"With debug, cells carry match diagnostics and an annotated PNG is returned.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"debug": map[string]interface{}{
						"type":        "boolean",
						"description": "Keep diagnostics and render an annotated overlay",
						"default":     false,
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "roster_layout",
			Description: "Reconstruct the grid geometry of a screenshot from its text detections without matching portraits.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{"path": pathProperty()},
				"required":   []string{"path"},
			},
		},
		{
			Name:        "roster_crop",
			Description: "Extract a rectangular region of a screenshot as a base64 PNG.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": crop,
				"required":   []string{"path", "x1", "y1", "x2", "y2"},
			},
		},
		{
			Name:        "roster_sample_color",
			Description: "Get the color of one pixel as hex, RGB and HSL.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"x":    map[string]interface{}{"type": "integer"},
					"y":    map[string]interface{}{"type": "integer"},
				},
				"required": []string{"path", "x", "y"},
			},
		},
		{
			Name:        "roster_hash_region",
			Description: "Compute the 256-bit perceptual difference hash of a screenshot region.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": regionProperties(),
				"required":   []string{"path", "x1", "y1", "x2", "y2"},
			},
		},
		{
			Name:        "roster_hash_distance",
			Description: "Hamming distance between two 64-digit hex hashes, and whether it passes the match threshold.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"a": map[string]interface{}{"type": "string", "description": "First hash"},
					"b": map[string]interface{}{"type": "string", "description": "Second hash"},
				},
				"required": []string{"a", "b"},
			},
		},
		{
			Name:        "roster_reference_hash",
			Description: "Fetch (or read from cache) a champion's reference portrait and return its hash.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"name": map[string]interface{}{"type": "string", "description": "Champion name as listed in the catalog"},
				},
				"required": []string{"name"},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
