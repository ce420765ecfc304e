// Package mcpserver exposes token analysis as MCP tools for LLM clients.
package mcpserver

import (
	"github.com/mark3labs/mcp-go/server"
)

const (
	serverName    = "token-risk-analyzer"
	serverVersion = "0.1.0"
)

// NewMCPServer creates an MCP server with every tool registered.
func NewMCPServer(h *Handlers) *server.MCPServer {
	s := server.NewMCPServer(serverName, serverVersion)

	s.AddTool(ToolAnalyzeToken, h.HandleAnalyzeToken)
	s.AddTool(ToolTokenHistory, h.HandleTokenHistory)
	s.AddTool(ToolListNetworks, h.HandleListNetworks)

	return s
}
