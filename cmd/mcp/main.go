// Command mcp serves token risk analysis as MCP tools over stdio.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"github.com/notlelouch/go-interview-practice/Token-Risk-Analyzer/internal/analyzer"
	"github.com/notlelouch/go-interview-practice/Token-Risk-Analyzer/internal/config"
	"github.com/notlelouch/go-interview-practice/Token-Risk-Analyzer/internal/logging"
	"github.com/notlelouch/go-interview-practice/Token-Risk-Analyzer/internal/mcpserver"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	// stdout carries the protocol; logs go to stderr
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	stack, err := analyzer.Build(context.Background(), cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build analyzer: %v\n", err)
		os.Exit(1)
	}
	defer stack.Close()

	h := mcpserver.NewHandlers(stack.Analyzer, stack.History, cfg.DefaultNetwork)
	if err := server.ServeStdio(mcpserver.NewMCPServer(h)); err != nil {
		fmt.Fprintf(os.Stderr, "MCP server error: %v\n", err)
		os.Exit(1)
	}
}
