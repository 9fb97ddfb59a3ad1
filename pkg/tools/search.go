package tools

import (
	"context"
	"net/url"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/yourusername/immich-mcp/pkg/immich"
)

// SearchAdapter exposes the Immich search endpoints.
type SearchAdapter struct {
	*toolSet
	client *immich.Client
}

type place struct {
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Admin1    string  `json:"admin1name,omitempty"`
	Admin2    string  `json:"admin2name,omitempty"`
}

// NewSearchAdapter creates the search adapter
func NewSearchAdapter(immichClient *immich.Client) *SearchAdapter {
	a := &SearchAdapter{toolSet: newToolSet(), client: immichClient}

	a.add(mcp.Tool{
		Name:        "smartSearch",
		Description: "Search assets by natural language description using Immich's CLIP search",
		InputSchema: objectSchema(map[string]interface{}{
			"query": requiredStringProp("What to look for (e.g., 'sunset at the beach')"),
			"type":  enumProp("Asset type", assetTypes...),
			"size":  intProp("Number of results per page", 1, 1000, 100),
			"page":  intProp("Page number (1-based)", 1, 100000, 1),
		}, "query"),
	}, a.smartSearch)

	a.add(mcp.Tool{
		Name:        "searchMetadata",
		Description: "Search assets by file name, place, camera, date range and flags",
		InputSchema: objectSchema(map[string]interface{}{
			"originalFileName": stringProp("File name, or part of it"),
			"city":             stringProp("City name"),
			"country":          stringProp("Country name"),
			"make":             stringProp("Filter by camera make (e.g., 'Canon', 'Sony')"),
			"model":            stringProp("Filter by camera model (e.g., 'iPhone 14 Pro')"),
			"takenAfter":       dateTimeProp("Only assets taken at or after this time (RFC 3339)"),
			"takenBefore":      dateTimeProp("Only assets taken at or before this time (RFC 3339)"),
			"type":             enumProp("Asset type", assetTypes...),
			"isFavorite":       optionalBoolProp("Only favorites (true) or non-favorites (false)"),
			"size":             intProp("Number of results per page", 1, 1000, 100),
			"page":             intProp("Page number (1-based)", 1, 100000, 1),
		}),
	}, a.searchMetadata)

	a.add(mcp.Tool{
		Name:        "searchPeople",
		Description: "Find recognised people by name",
		InputSchema: objectSchema(map[string]interface{}{
			"name":       requiredStringProp("Person name, or part of it"),
			"withHidden": boolProp("Include hidden people", false),
		}, "name"),
	}, a.searchPeople)

	a.add(mcp.Tool{
		Name:        "searchPlaces",
		Description: "Find known places by name",
		InputSchema: objectSchema(map[string]interface{}{
			"name": requiredStringProp("Place name, or part of it"),
		}, "name"),
	}, a.searchPlaces)

	return a
}

func (a *SearchAdapter) smartSearch(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	params := struct {
		Query string `json:"query"`
		Type  string `json:"type,omitempty"`
		Size  int    `json:"size"`
		Page  int    `json:"page"`
	}{Size: 100, Page: 1}
	if err := decodeArguments(args, &params); err != nil {
		return nil, err
	}

	var response immich.SearchAssetsResponse
	if err := a.client.Post(ctx, "/search/smart", params, &response); err != nil {
		return nil, err
	}

	result := searchResult(response)
	result["query"] = params.Query
	return result, nil
}

func (a *SearchAdapter) searchMetadata(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	params := struct {
		OriginalFileName string `json:"originalFileName,omitempty"`
		City             string `json:"city,omitempty"`
		Country          string `json:"country,omitempty"`
		Make             string `json:"make,omitempty"`
		Model            string `json:"model,omitempty"`
		TakenAfter       string `json:"takenAfter,omitempty"`
		TakenBefore      string `json:"takenBefore,omitempty"`
		Type             string `json:"type,omitempty"`
		IsFavorite       *bool  `json:"isFavorite,omitempty"`
		Size             int    `json:"size"`
		Page             int    `json:"page"`
		WithExif         bool   `json:"withExif"`
	}{Size: 100, Page: 1, WithExif: true}
	if err := decodeArguments(args, &params); err != nil {
		return nil, err
	}

	var response immich.SearchAssetsResponse
	if err := a.client.Post(ctx, "/search/metadata", params, &response); err != nil {
		return nil, err
	}

	activeFilters := []string{}
	for _, filter := range []struct{ name, value string }{
		{"file name", params.OriginalFileName},
		{"city", params.City},
		{"country", params.Country},
		{"make", params.Make},
		{"model", params.Model},
		{"type", params.Type},
	} {
		if filter.value != "" {
			activeFilters = append(activeFilters, filter.name)
		}
	}
	if params.TakenAfter != "" || params.TakenBefore != "" {
		activeFilters = append(activeFilters, "date range")
	}
	if params.IsFavorite != nil {
		activeFilters = append(activeFilters, "favorite")
	}

	result := searchResult(response)
	result["activeFilters"] = activeFilters
	return result, nil
}

func (a *SearchAdapter) searchPeople(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	var params struct {
		Name       string `json:"name"`
		WithHidden bool   `json:"withHidden"`
	}
	if err := decodeArguments(args, &params); err != nil {
		return nil, err
	}

	query := url.Values{"name": {params.Name}}
	if params.WithHidden {
		query.Set("withHidden", "true")
	}

	var people []immich.Person
	if err := a.client.Get(ctx, "/search/person", query, &people); err != nil {
		return nil, err
	}

	if people == nil {
		people = []immich.Person{}
	}
	return map[string]interface{}{
		"success": true,
		"people":  people,
		"count":   len(people),
	}, nil
}

func (a *SearchAdapter) searchPlaces(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	var params struct {
		Name string `json:"name"`
	}
	if err := decodeArguments(args, &params); err != nil {
		return nil, err
	}

	var places []place
	if err := a.client.Get(ctx, "/search/places", url.Values{"name": {params.Name}}, &places); err != nil {
		return nil, err
	}

	results := make([]map[string]interface{}, 0, len(places))
	for _, p := range places {
		region := []string{}
		for _, part := range []string{p.Admin2, p.Admin1} {
			if part != "" {
				region = append(region, part)
			}
		}
		results = append(results, map[string]interface{}{
			"name":      p.Name,
			"region":    strings.Join(region, ", "),
			"latitude":  p.Latitude,
			"longitude": p.Longitude,
		})
	}

	return map[string]interface{}{
		"success": true,
		"places":  results,
		"count":   len(results),
	}, nil
}
