package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"go.ngs.io/gws-mcp-advanced/auth"
	"go.ngs.io/gws-mcp-advanced/config"
	"go.ngs.io/gws-mcp-advanced/docs"
	"go.ngs.io/gws-mcp-advanced/drive"
	"go.ngs.io/gws-mcp-advanced/server"
)

func main() {
	// MCP owns stdout; everything else goes to stderr, unbuffered and
	// without timestamps.
	log.SetOutput(os.Stderr)
	log.SetFlags(0)

	if len(os.Args) > 1 && (os.Args[1] == "--version" || os.Args[1] == "-v") {
		fmt.Println("gws-mcp-advanced v" + server.VERSION)
		os.Exit(0)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()
	log.Println("[DEBUG] Creating OAuth client...")
	oauthClient, err := auth.NewOAuthClient(ctx, cfg.OAuth)
	if err != nil {
		log.Fatalf("Failed to initialize OAuth client: %v", err)
	}
	log.Println("[DEBUG] OAuth client ready")

	mcpServer := server.NewMCPServer()

	log.Println("[INFO] Registering services...")
	if err := registerServices(ctx, mcpServer, oauthClient, cfg); err != nil {
		log.Printf("[WARNING] Some services failed to register: %v", err)
	}

	// Blocks until the client disconnects.
	if err := mcpServer.Start(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func registerServices(ctx context.Context, srv *server.MCPServer, oauth *auth.OAuthClient, cfg *config.Config) error {
	initTimeout := 5 * time.Second

	// The alias cache is shared: drive search populates it, docs tools
	// resolve single-letter document references against it.
	aliases := drive.NewAliasCache()

	if cfg.Services.Drive.Enabled {
		initCtx, cancel := context.WithTimeout(ctx, initTimeout)
		driveClient, err := drive.NewClient(initCtx, oauth)
		cancel()
		if err != nil {
			log.Printf("[ERROR] Failed to initialize Drive client: %v", err)
		} else {
			srv.RegisterService("drive", drive.NewHandler(driveClient, aliases))
			log.Println("[DEBUG] Drive service registered")
		}
	}

	if cfg.Services.Docs.Enabled {
		initCtx, cancel := context.WithTimeout(ctx, initTimeout)
		docsClient, err := docs.NewClient(initCtx, oauth)
		cancel()
		if err != nil {
			log.Printf("[ERROR] Failed to initialize Docs client: %v", err)
		} else {
			srv.RegisterService("docs", docs.NewHandler(docsClient, aliases))
			log.Println("[DEBUG] Docs service registered")
		}
	}

	return nil
}
