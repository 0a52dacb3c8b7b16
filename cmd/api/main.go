package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"tally_insights/pkg/api/chat"
	"tally_insights/pkg/api/config"
	"tally_insights/pkg/core/agent"
	"tally_insights/pkg/core/intent"
	"tally_insights/pkg/core/pipeline"
	"tally_insights/pkg/core/store"
	"tally_insights/pkg/core/summary"
	"tally_insights/pkg/core/tally"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

var agentMgr *agent.Manager

func main() {
	// Load environment variables
	godotenv.Load()

	ctx := context.Background()

	// Initialize manager from config
	configData, _ := os.ReadFile("config/models.yaml")
	var agentCfg agent.Config
	yaml.Unmarshal(configData, &agentCfg)
	agentMgr = agent.NewManager(agentCfg)

	// Query audit store is optional: without DATABASE_URL we answer without auditing
	if err := store.InitDB(ctx); err != nil {
		fmt.Printf("[WARNING] Query audit disabled: %v\n", err)
	}
	auditLog := store.NewQueryLogRepo(store.GetPool())
	defer store.Close()

	tallyClient := tally.NewClient()
	fmt.Printf("[TALLY] Gateway at %s\n", tallyClient.BaseURL)

	p := pipeline.NewPipeline(tallyClient, tally.KeywordResolver{}, agentMgr.GetProvider("graph"))
	classifier := intent.NewClassifier(agentMgr.GetProvider("classifier"))
	summarizer := summary.NewSummarizer(ctx)

	chatHandler := chat.NewHandler(classifier, p, summarizer, auditLog, tallyClient,
		os.Getenv("TALLY_DEFAULT_COMPANY"))
	http.HandleFunc("/api/chat", chatHandler.HandleChat)
	http.HandleFunc("/api/company", chatHandler.HandleCompany)

	// Config endpoints
	configHandler := config.NewHandler(agentMgr)
	http.HandleFunc("/api/config", configHandler.HandleConfig)
	http.HandleFunc("/api/config/switch", configHandler.HandleSwitch)

	http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"ok"}`)
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	fmt.Printf("API server starting on :%s...\n", port)
	fmt.Println("  - POST /api/chat")
	fmt.Println("  - GET  /api/company")
	fmt.Println("  - GET  /api/config")
	fmt.Println("  - POST /api/config/switch")
	fmt.Println("  - GET  /health")

	if err := http.ListenAndServe(":"+port, nil); err != nil {
		fmt.Printf("[FATAL] Server failed to start: %v\n", err)
		os.Exit(1)
	}
}
