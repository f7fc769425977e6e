package oracle

import (
	"fmt"
	"strings"

	"github.com/nconklindev/sheetmerge/internal/types"

	"google.golang.org/genai"
)

// recommendation is the structured answer requested from the model.
type recommendation struct {
	StandardHeaders []string      `json:"standardHeaders"`
	MappingList     []mappingItem `json:"mappingList"`
}

type mappingItem struct {
	Original string `json:"original"`
	Standard string `json:"standard"`
}

// responseSchema constrains the model output to a recommendation.
func responseSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"standardHeaders": {
				Type:        genai.TypeArray,
				Items:       &genai.Schema{Type: genai.TypeString},
				Description: "The list of unified, cleaned column names.",
			},
			"mappingList": {
				Type:        genai.TypeArray,
				Description: "List of mappings from original header to standard header.",
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"original": {Type: genai.TypeString, Description: "The original header name."},
						"standard": {Type: genai.TypeString, Description: "The corresponding standard header name."},
					},
					Required: []string{"original", "standard"},
				},
			},
		},
		Required: []string{"standardHeaders", "mappingList"},
	}
}

// validate turns a model answer into a schema covering every requested
// header.
//
// Every requested header must appear in the mapping list; a missing one is
// an ErrInvalidResponse. Mapping entries for headers that were not
// requested are ignored, and a repeated entry overrides the earlier one.
// A target the model did not declare is appended to the standard headers
// in request order, and declared headers nothing maps to are dropped, so
// StandardHeaders is exactly the set of mapping targets.
func validate(headers []string, rec recommendation) (types.SchemaMapping, error) {
	requested := make(map[string]bool, len(headers))
	for _, h := range headers {
		requested[h] = true
	}

	mapping := make(map[string]string, len(headers))
	for _, item := range rec.MappingList {
		if !requested[item.Original] {
			continue
		}
		target := strings.TrimSpace(item.Standard)
		if target == "" {
			return types.SchemaMapping{}, fmt.Errorf("%w: header %q mapped to an empty name", ErrInvalidResponse, item.Original)
		}
		mapping[item.Original] = target
	}

	used := make(map[string]bool, len(mapping))
	for _, h := range headers {
		target, ok := mapping[h]
		if !ok {
			return types.SchemaMapping{}, fmt.Errorf("%w: header %q is unmapped", ErrInvalidResponse, h)
		}
		used[target] = true
	}

	standard := make([]string, 0, len(used))
	placed := make(map[string]bool, len(used))
	for _, s := range rec.StandardHeaders {
		s = strings.TrimSpace(s)
		if used[s] && !placed[s] {
			placed[s] = true
			standard = append(standard, s)
		}
	}
	for _, h := range headers {
		if target := mapping[h]; !placed[target] {
			placed[target] = true
			standard = append(standard, target)
		}
	}

	return types.SchemaMapping{StandardHeaders: standard, Mapping: mapping}, nil
}
