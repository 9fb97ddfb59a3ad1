package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/yourusername/immich-mcp/pkg/immich"
)

// SystemAdapter exposes connection checks, server info and cache control.
type SystemAdapter struct {
	*toolSet
	client *immich.Client
}

// NewSystemAdapter creates the system adapter
func NewSystemAdapter(immichClient *immich.Client) *SystemAdapter {
	a := &SystemAdapter{toolSet: newToolSet(), client: immichClient}

	a.add(mcp.Tool{
		Name:        "validateConnection",
		Description: "Check that the Immich server is reachable and the API key is accepted",
		InputSchema: objectSchema(map[string]interface{}{}),
	}, a.validateConnection)

	a.add(mcp.Tool{
		Name:        "getServerInfo",
		Description: "Get Immich server version and build information",
		InputSchema: objectSchema(map[string]interface{}{}),
	}, a.getServerInfo)

	a.add(mcp.Tool{
		Name:        "clearCache",
		Description: "Drop every cached Immich response so the next reads hit the server",
		InputSchema: objectSchema(map[string]interface{}{}),
	}, a.clearCache)

	return a
}

func (a *SystemAdapter) validateConnection(ctx context.Context, _ map[string]interface{}) (interface{}, error) {
	if err := a.client.ValidateConnection(ctx); err != nil {
		return map[string]interface{}{
			"success":   false,
			"connected": false,
			"apiRoot":   a.client.APIRoot(),
			"error":     immich.ErrorMessage(err),
		}, nil
	}

	return map[string]interface{}{
		"success":   true,
		"connected": true,
		"apiRoot":   a.client.APIRoot(),
	}, nil
}

func (a *SystemAdapter) getServerInfo(ctx context.Context, _ map[string]interface{}) (interface{}, error) {
	var about map[string]interface{}
	if err := a.client.Get(ctx, "/server/about", nil, &about); err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"success": true,
		"server":  about,
	}, nil
}

func (a *SystemAdapter) clearCache(_ context.Context, _ map[string]interface{}) (interface{}, error) {
	cleared := a.client.ClearCache()

	return map[string]interface{}{
		"success": true,
		"cleared": cleared,
	}, nil
}
