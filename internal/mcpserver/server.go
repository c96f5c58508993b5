// Package mcpserver exposes capture and critique as MCP tools over stdio, so
// agents can ask for a critique of whatever image is open in the host.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/hupe1980/critique/core"
	"github.com/hupe1980/critique/internal/util"
	"github.com/hupe1980/critique/logging"
	"github.com/hupe1980/critique/model"
)

// Capturer produces a data URI of the active image (*capture.Service).
type Capturer interface {
	Capture(ctx context.Context) (string, error)
}

// Critic drives the conversation (*critique.Critic).
type Critic interface {
	Scan(ctx context.Context, prompt string) (core.Message, error)
	Reply(ctx context.Context, text string) (core.Message, error)
	NewScan()
	ConversationID() string
	Model() model.Info
}

// Tool describes the contract for MCP tool implementations.
type Tool interface {
	Name() string
	Description() string
	InputSchema() map[string]interface{}
	Execute(ctx context.Context, args map[string]interface{}) (interface{}, error)
}

// Options configure the server.
type Options struct {
	Name    string
	Version string
	// Logger defaults to logging.NoOpLogger.
	Logger logging.Logger
}

// Server wires the MCP runtime to the capture service and critic.
type Server struct {
	opts      Options
	tools     map[string]Tool
	mcpServer *mcpserver.MCPServer
}

// NewServer constructs the MCP server and registers all tools.
func NewServer(capturer Capturer, critic Critic, optFns ...func(o *Options)) *Server {
	opts := Options{
		Name:    "critique",
		Version: "0.1.0",
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	opts.Logger = logging.OrNoOp(opts.Logger)

	mcpSrv := mcpserver.NewMCPServer(
		opts.Name,
		opts.Version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithLogging(),
		mcpserver.WithRecovery(),
	)

	s := &Server{
		opts:      opts,
		tools:     make(map[string]Tool),
		mcpServer: mcpSrv,
	}

	s.registerTool(&CaptureImageTool{capturer: capturer})
	s.registerTool(&CritiqueImageTool{critic: critic})
	s.registerTool(&NewScanTool{critic: critic})

	return s
}

// Start serves MCP over stdin/stdout until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	stdio := mcpserver.NewStdioServer(s.mcpServer)
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

// MCPServer returns the underlying server (for alternative transports).
func (s *Server) MCPServer() *mcpserver.MCPServer { return s.mcpServer }

// ToolNames returns the registered tool names, sorted.
func (s *Server) ToolNames() []string {
	names := make([]string, 0, len(s.tools))
	for name := range s.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ExecuteTool runs a tool directly, bypassing the transport.
func (s *Server) ExecuteTool(ctx context.Context, name string, args map[string]interface{}) (interface{}, error) {
	tool, ok := s.tools[name]
	if !ok {
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
	if args == nil {
		args = map[string]interface{}{}
	}
	if err := util.CheckArguments(args, tool.InputSchema()); err != nil {
		return nil, err
	}
	return tool.Execute(ctx, args)
}

func (s *Server) registerTool(tool Tool) {
	s.tools[tool.Name()] = tool

	schema, err := json.Marshal(tool.InputSchema())
	if err != nil {
		schema = json.RawMessage(`{"type":"object"}`)
	}

	mcpTool := mcp.NewToolWithRawSchema(tool.Name(), tool.Description(), schema)
	s.mcpServer.AddTool(mcpTool, s.wrapTool(tool))
}

func (s *Server) wrapTool(tool Tool) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		if args == nil {
			args = map[string]interface{}{}
		}

		result, err := s.ExecuteTool(ctx, tool.Name(), args)
		if err != nil {
			s.opts.Logger.Warn("Tool failed", "tool", tool.Name(), "error", err)
			return &mcp.CallToolResult{
				Content: []mcp.Content{mcp.NewTextContent(fmt.Sprintf("tool %s failed: %v", tool.Name(), err))},
				IsError: true,
			}, nil
		}

		payload := marshalToolPayload(tool.Name(), result)
		return &mcp.CallToolResult{
			Content: []mcp.Content{mcp.NewTextContent(string(payload))},
			IsError: false,
		}, nil
	}
}

func marshalToolPayload(toolName string, result interface{}) []byte {
	payload, marshalErr := json.Marshal(result)
	if marshalErr == nil {
		return payload
	}

	fallback := map[string]interface{}{
		"success": false,
		"error":   fmt.Sprintf("tool %s returned non-serializable payload: %v", toolName, marshalErr),
	}
	payload, fallbackErr := json.Marshal(fallback)
	if fallbackErr == nil {
		return payload
	}

	return []byte(fmt.Sprintf(`{"success":false,"error":"tool %s failed to encode payload"}`, toolName))
}

func getStringArg(args map[string]interface{}, key string) string {
	val, ok := args[key]
	if !ok || val == nil {
		return ""
	}
	switch v := val.(type) {
	case string:
		return v
	default:
		return fmt.Sprintf("%v", v)
	}
}

func getBoolArg(args map[string]interface{}, key string, def bool) bool {
	if v, ok := args[key].(bool); ok {
		return v
	}
	return def
}
