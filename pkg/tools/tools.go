package tools

import (
	"context"
	"errors"
	"fmt"
	"sort"

	jsoniter "github.com/json-iterator/go"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog/log"
	"github.com/xeipuuv/gojsonschema"
	"github.com/yourusername/immich-mcp/pkg/immich"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrUnknownTool is returned when an adapter is asked to run a tool it does not own.
var ErrUnknownTool = errors.New("unknown tool")

// Adapter exposes a group of tools backed by the Immich client.
type Adapter interface {
	// Tools returns the adapter's tool catalog in registration order.
	Tools() []mcp.Tool
	// Call validates args against the named tool's schema and runs it.
	Call(ctx context.Context, name string, args map[string]interface{}) (interface{}, error)
}

// NewAdapters returns every adapter the server exposes.
func NewAdapters(immichClient *immich.Client) []Adapter {
	return []Adapter{
		NewAlbumsAdapter(immichClient),
		NewAssetsAdapter(immichClient),
		NewSearchAdapter(immichClient),
		NewSystemAdapter(immichClient),
	}
}

// RegisterTools registers all tools with the MCP server
func RegisterTools(s *server.MCPServer, adapters ...Adapter) {
	for _, adapter := range adapters {
		for _, tool := range adapter.Tools() {
			s.AddTool(tool, handlerFor(adapter, tool.Name))
		}
	}
}

// Catalog lists every tool across adapters, sorted by name.
func Catalog(adapters ...Adapter) []mcp.Tool {
	var catalog []mcp.Tool
	for _, adapter := range adapters {
		catalog = append(catalog, adapter.Tools()...)
	}
	sort.Slice(catalog, func(i, j int) bool {
		return catalog[i].Name < catalog[j].Name
	})
	return catalog
}

func handlerFor(adapter Adapter, name string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, err := argumentsOf(request)
		if err != nil {
			log.Error().Err(err).Str("tool", name).Msg("Tool arguments are not an object")
			return mcp.NewToolResultError(err.Error()), nil
		}

		result, err := adapter.Call(ctx, name, args)
		if err != nil {
			log.Error().
				Err(err).
				Str("tool", name).
				Interface("arguments", args).
				Msg("Tool invocation failed")
			return mcp.NewToolResultError(err.Error()), nil
		}

		return makeMCPResult(result)
	}
}

func argumentsOf(request mcp.CallToolRequest) (map[string]interface{}, error) {
	argBytes, ok := request.Params.Arguments.([]byte)
	if !ok {
		var err error
		argBytes, err = json.Marshal(request.Params.Arguments)
		if err != nil {
			return nil, fmt.Errorf("invalid parameters: %w", err)
		}
	}

	var args map[string]interface{}
	if err := json.Unmarshal(argBytes, &args); err != nil {
		return nil, fmt.Errorf("invalid parameters: %w", err)
	}
	if args == nil {
		args = map[string]interface{}{}
	}
	return args, nil
}

// Helper function to create MCP result
func makeMCPResult(data interface{}) (*mcp.CallToolResult, error) {
	content, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return mcp.NewToolResultText(string(content)), nil
}

type handlerFunc func(ctx context.Context, args map[string]interface{}) (interface{}, error)

type toolEntry struct {
	tool    mcp.Tool
	schema  *gojsonschema.Schema
	handler handlerFunc
}

// toolSet is the catalog and dispatcher shared by every adapter.
type toolSet struct {
	order   []string
	entries map[string]toolEntry
}

func newToolSet() *toolSet {
	return &toolSet{entries: make(map[string]toolEntry)}
}

// add registers a tool. Schemas are static, so a schema that fails to compile is a programming error.
func (s *toolSet) add(tool mcp.Tool, handler handlerFunc) {
	schema, err := compileSchema(tool.InputSchema)
	if err != nil {
		panic(fmt.Sprintf("tools: invalid input schema for %s: %v", tool.Name, err))
	}

	s.order = append(s.order, tool.Name)
	s.entries[tool.Name] = toolEntry{tool: tool, schema: schema, handler: handler}
}

func (s *toolSet) Tools() []mcp.Tool {
	tools := make([]mcp.Tool, 0, len(s.order))
	for _, name := range s.order {
		tools = append(tools, s.entries[name].tool)
	}
	return tools
}

func (s *toolSet) Call(ctx context.Context, name string, args map[string]interface{}) (interface{}, error) {
	entry, ok := s.entries[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}

	if args == nil {
		args = map[string]interface{}{}
	}
	if err := validateArguments(name, entry.schema, args); err != nil {
		return nil, err
	}

	return entry.handler(ctx, args)
}

// decodeArguments copies validated args into params. Fields preset on params act as defaults.
func decodeArguments(args map[string]interface{}, params interface{}) error {
	argBytes, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("invalid parameters: %w", err)
	}
	if err := json.Unmarshal(argBytes, params); err != nil {
		return fmt.Errorf("invalid parameters: %w", err)
	}
	return nil
}
