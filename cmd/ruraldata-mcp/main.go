package main

import (
	"flag"
	"os"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"

	"ruraldata/internal/config"
	"ruraldata/internal/log"
	"ruraldata/internal/mcp"
)

// Tool-calling bridge: exposes the query API as MCP tools over stdio or
// streamable HTTP, for language-model clients.
func main() {
	transport := flag.String("transport", "stdio", "Transport method: stdio or httpstream")
	port := flag.String("port", "8082", "Port for the httpstream transport")
	flag.Parse()

	_ = godotenv.Load()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		os.Stderr.WriteString("Configuration validation failed: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger := log.New(log.Config{
		Level:     log.ParseLevel(cfg.LogLevel),
		Component: log.ComponentMCP,
	})
	log.SetDefault(logger)

	handler := mcp.NewHandler(mcp.NewAPIClient(cfg.APIBaseURL))
	s := mcp.NewToolServer(handler)

	switch *transport {
	case "httpstream":
		logger.Info("Starting MCP server with StreamableHTTP transport", "port", *port, "api", cfg.APIBaseURL)
		httpServer := server.NewStreamableHTTPServer(s)
		if err := httpServer.Start(":" + *port); err != nil {
			logger.Error("HTTP server error", log.FieldError, err)
			os.Exit(1)
		}
	case "stdio":
		logger.Info("Starting MCP server with STDIO transport", "api", cfg.APIBaseURL)
		if err := server.ServeStdio(s); err != nil {
			logger.Error("STDIO server error", log.FieldError, err)
			os.Exit(1)
		}
	default:
		logger.Error("Unknown transport", "transport", *transport)
		os.Exit(1)
	}
}
