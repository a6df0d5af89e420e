package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pocketomega/pocket-omega/internal/coordinator"
	"github.com/pocketomega/pocket-omega/internal/execution"
	openaillm "github.com/pocketomega/pocket-omega/internal/llm/openai"
	"github.com/pocketomega/pocket-omega/internal/orchestration"
	"github.com/pocketomega/pocket-omega/internal/planning"
	"github.com/pocketomega/pocket-omega/internal/reasoner"
	"github.com/pocketomega/pocket-omega/internal/reasoner/anthropic"
	reasoneropenai "github.com/pocketomega/pocket-omega/internal/reasoner/openai"
	"github.com/pocketomega/pocket-omega/internal/sessionplane"
	"github.com/pocketomega/pocket-omega/internal/tool"
	"github.com/pocketomega/pocket-omega/internal/tool/builtin"
	"github.com/pocketomega/pocket-omega/internal/toolbridge"
	"github.com/pocketomega/pocket-omega/internal/tracing"
	"github.com/pocketomega/pocket-omega/internal/web"
	"github.com/pocketomega/pocket-omega/internal/workflow"
	"github.com/pocketomega/pocket-omega/pkg/config"
)

func main() {
	config.LoadEnv()

	fmt.Println("╔══════════════════════════════════════╗")
	fmt.Println("║   Reasoning-Chain Orchestrator         ║")
	fmt.Println("║   Planning → Orchestration → Execution ║")
	fmt.Println("╚══════════════════════════════════════╝")

	ctx := context.Background()

	shutdownTracing, _ := tracing.Setup(ctx, tracing.ConfigFromEnv("pocket-omega-orchestrator"))
	defer shutdownTracing(ctx)

	registry := tool.NewRegistry()
	workspaceDir := os.Getenv("WORKSPACE_DIR")
	if workspaceDir == "" {
		workspaceDir, _ = os.Getwd()
	}
	if info, err := os.Stat(workspaceDir); err != nil || !info.IsDir() {
		log.Fatalf("❌ WORKSPACE_DIR %q does not exist or is not a directory", workspaceDir)
	}
	fmt.Printf("📂 Workspace: %s\n", workspaceDir)

	shellEnabled := os.Getenv("TOOL_SHELL_ENABLED") != "false"
	registry.Register(builtin.NewShellTool(workspaceDir, shellEnabled))
	registry.Register(builtin.NewFileReadTool(workspaceDir))
	registry.Register(builtin.NewFileWriteTool(workspaceDir))
	registry.Register(builtin.NewFileListTool(workspaceDir))
	registry.Register(builtin.NewFileFindTool(workspaceDir))
	registry.Register(builtin.NewTimeTool())
	registry.Register(builtin.NewWebReaderTool())
	registry.Register(builtin.NewFileGrepTool(workspaceDir))
	registry.Register(builtin.NewFileMoveTool(workspaceDir))
	registry.Register(builtin.NewFileOpenTool(workspaceDir))
	registry.Register(builtin.NewFileDeleteTool(workspaceDir))
	registry.Register(builtin.NewFilePatchTool(workspaceDir))

	if os.Getenv("TOOL_HTTP_ENABLED") != "false" {
		allowInternal := os.Getenv("TOOL_HTTP_ALLOW_INTERNAL") == "true"
		registry.Register(builtin.NewHTTPRequestTool(allowInternal))
	}
	if key := os.Getenv("TAVILY_API_KEY"); key != "" {
		registry.Register(builtin.NewTavilySearchTool(key))
	}
	if key := os.Getenv("BRAVE_API_KEY"); key != "" {
		registry.Register(builtin.NewBraveSearchTool(key))
	}
	if os.Getenv("TOOL_GIT_INFO_ENABLED") != "false" {
		registry.Register(builtin.NewGitInfoTool(workspaceDir))
	}
	if allowedFiles := configEditAllowedFiles(); len(allowedFiles) > 0 {
		registry.Register(builtin.NewConfigEditTool(allowedFiles))
	}

	mcpConfigPath := os.Getenv("MCP_CONFIG")
	if mcpConfigPath == "" {
		mcpConfigPath = "mcp.json"
	}
	if os.Getenv("TOOL_MCP_SERVER_MGMT_ENABLED") != "false" {
		registry.Register(builtin.NewMCPServerAddTool(mcpConfigPath))
		registry.Register(builtin.NewMCPServerRemoveTool(mcpConfigPath))
		registry.Register(builtin.NewMCPServerListTool(mcpConfigPath))
	}

	if err := registry.InitAll(ctx); err != nil {
		log.Fatalf("❌ Failed to initialize tools: %v", err)
	}
	defer registry.CloseAll()
	fmt.Printf("🛠️  Builtin tools: %d registered\n", len(registry.List()))

	transports := []toolbridge.Transport{toolbridge.NewBuiltinTransport(registry)}

	mcpServerCount := 0
	if _, statErr := os.Stat(mcpConfigPath); statErr == nil {
		mcpTransport := toolbridge.NewMCPTransport(mcpConfigPath)
		n, mcpErrs := mcpTransport.ConnectAll(ctx)
		for _, e := range mcpErrs {
			log.Printf("⚠️  MCP connect: %v", e)
		}
		mcpServerCount = n
		defer mcpTransport.CloseAll()
		transports = append(transports, mcpTransport)
		fmt.Printf("🔌 MCP: %d server(s) connected\n", n)
	}

	bridge := toolbridge.New(transports...)

	r, modelName := buildReasoner()
	fmt.Printf("🧠 Reasoner: %s\n", r.Name())

	planningStage := planning.New(r, bridge)
	orchestrationStage := orchestration.New(r, bridge)
	executionStage := execution.New(bridge, r)
	executor := workflow.New(planningStage, orchestrationStage, executionStage)

	configDir := os.Getenv("CONFIG_DIR")
	if configDir == "" {
		configDir = filepath.Join(workspaceDir, "data")
	}
	sessionTTL := 24 * time.Hour
	if v := os.Getenv("SESSION_TTL_HOURS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			sessionTTL = time.Duration(n) * time.Hour
		} else {
			log.Printf("⚠️ Invalid SESSION_TTL_HOURS=%q, using default 24h", v)
		}
	}
	sessions := sessionplane.NewStore(sessionTTL, configDir)
	defer sessions.Close()
	fmt.Printf("💬 Sessions: TTL=%v store=%s\n", sessionTTL, configDir)

	coord := coordinator.New(bridge, planningStage, executor, sessions, configDir)

	healthInfo := web.HealthInfo{
		ReasonerModel:  modelName,
		ToolCount:      len(registry.List()),
		MCPServerCount: mcpServerCount,
		SessionCount:   sessions.Count,
	}
	server := web.NewServer(coord, healthInfo)

	if err := server.Start(); err != nil {
		log.Fatalf("❌ Server error: %v", err)
	}
}

// configEditAllowedFiles parses CONFIG_EDIT_ALLOWED_FILES, a comma-separated
// list of alias=path pairs (e.g. ".env=/opt/pocket-omega/.env"), into the
// allowlist the config_edit tool requires at construction. Unset or malformed
// entries are skipped rather than failing startup.
func configEditAllowedFiles() map[string]string {
	raw := os.Getenv("CONFIG_EDIT_ALLOWED_FILES")
	if raw == "" {
		return nil
	}
	allowed := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		alias, path, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok || alias == "" || path == "" {
			continue
		}
		allowed[alias] = path
	}
	return allowed
}

// buildReasoner selects the Reasoner backend per REASONER_BACKEND:
// "openai" (default) or "anthropic".
func buildReasoner() (reasoner.Reasoner, string) {
	cache := reasoner.NewSchemaCache()
	backend := os.Getenv("REASONER_BACKEND")
	if backend == "" {
		backend = "openai"
	}

	switch backend {
	case "anthropic":
		model := os.Getenv("ANTHROPIC_MODEL")
		if model == "" {
			model = "claude-3-5-sonnet-latest"
		}
		return anthropic.NewFromAPIKey(os.Getenv("ANTHROPIC_API_KEY"), model, cache), model
	default:
		llmClient, err := openaillm.NewClientFromEnv()
		if err != nil {
			log.Fatalf("❌ Failed to initialize OpenAI-compatible client: %v", err)
		}
		return reasoneropenai.New(llmClient, cache), llmClient.GetConfig().Model
	}
}
