package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

var pathProperty = map[string]interface{}{
	"type":        "string",
	"description": "Absolute path to the image file",
}

// overrideProperties are the per-call tuning knobs shared by the document
// tools. Unset values fall back to the server configuration.
func overrideProperties() map[string]interface{} {
	return map[string]interface{}{
		"angle_tolerance": map[string]interface{}{
			"type":        "number",
			"description": "Allowed deviation from a right angle, in degrees",
		},
		"length_tolerance": map[string]interface{}{
			"type":        "number",
			"description": "Allowed deviation of a square's sides from their mean, in pixels",
		},
		"poly_tolerance": map[string]interface{}{
			"type":        "number",
			"description": "Polygon approximation tolerance, in pixels",
		},
		"crop_ratio": map[string]interface{}{
			"type":        "number",
			"description": "Margin cropped from each side of the rectified page, as a fraction of its width",
		},
		"aspect_ratio": map[string]interface{}{
			"type":        "number",
			"description": "Expected page width/height. Below 1 turns a page found without markers portrait, otherwise landscape. Marker pages follow their deepest marker",
		},
	}
}

func withOverrides(props map[string]interface{}) map[string]interface{} {
	for k, v := range overrideProperties() {
		props[k] = v
	}
	return props
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Basic Image Information
		{
			Name:        "image_load",
			Description: "Load an image file and return its dimensions and format.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty,
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_dimensions",
			Description: "Get the width and height of an image file.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty,
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_edge_detect",
			Description: "Run the Canny edge detector the document pipeline uses and return the edge map as base64-encoded PNG. Useful for seeing why a page or marker was not found.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty,
					"threshold_low": map[string]interface{}{
						"type":        "integer",
						"description": "Lower hysteresis threshold. Defaults to the configured value",
					},
					"threshold_high": map[string]interface{}{
						"type":        "integer",
						"description": "Upper hysteresis threshold. Defaults to the configured value",
					},
					"aperture": map[string]interface{}{
						"type":        "integer",
						"enum":        []int{3, 5},
						"description": "Sobel kernel size. Defaults to the configured value",
					},
				},
				"required": []string{"path"},
			},
		},

		// Document Operations
		{
			Name:        "document_detect",
			Description: "Find a document in a photo without rectifying it. Reports the fiducial markers found, the four page corners (top-left first) and which tier produced them.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withOverrides(map[string]interface{}{
					"path": pathProperty,
				}),
				"required": []string{"path"},
			},
		},
		{
			Name:        "document_rectify",
			Description: "Find a document in a photo, warp it to a flat top-down view, crop the margin and binarise it. Writes PNGs when output paths are given, otherwise returns them base64-encoded. A page that cannot be found is reported with state \"failed\", not as an error.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withOverrides(map[string]interface{}{
					"path": pathProperty,
					"output_path": map[string]interface{}{
						"type":        "string",
						"description": "Where to write the rectified page (PNG, JPEG, TIFF, BMP or GIF by extension)",
					},
					"overlay_path": map[string]interface{}{
						"type":        "string",
						"description": "Where to write the original photo with the detected outline drawn on it",
					},
				}),
				"required": []string{"path"},
			},
		},
		{
			Name:        "document_rectify_batch",
			Description: "Rectify many photos concurrently into an output directory. Each input produces <name>_rectified.png and <name>_overlay.png.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withOverrides(map[string]interface{}{
					"paths": map[string]interface{}{
						"type":        "array",
						"items":       map[string]interface{}{"type": "string"},
						"description": "Absolute paths of the input images",
					},
					"output_dir": map[string]interface{}{
						"type":        "string",
						"description": "Directory for the output files; created if missing",
					},
					"concurrency": map[string]interface{}{
						"type":        "integer",
						"description": "Maximum images processed at once. Defaults to the configured value",
					},
				}),
				"required": []string{"paths", "output_dir"},
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
