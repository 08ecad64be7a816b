package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	wlmcp "github.com/claude/weightlog/internal/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// Version is set at build time via -ldflags.
var Version = "dev"

// weightlog-mcp serves MCP over stdio for local assistants, reading data from
// a remote weightlog server's REST API.
func main() {
	serverURL := flag.String("server", "", "weightlog server URL (e.g. https://weightlog.tail1234.ts.net)")
	flag.Parse()

	// stdout carries the protocol
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if *serverURL == "" {
		fmt.Fprintf(os.Stderr, "Usage: weightlog-mcp -server <URL>\n")
		os.Exit(1)
	}

	s := wlmcp.New(wlmcp.NewHTTPClient(*serverURL), Version, log)
	if err := mcpserver.ServeStdio(s); err != nil {
		log.Error("mcp stdio server failed", "error", err)
		os.Exit(1)
	}
}
