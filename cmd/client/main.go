package main

import (
	"flag"
	"log"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/tidwall/gjson"

	"github.com/harmonic-chat/harmonic/internal/client"
	"github.com/harmonic-chat/harmonic/internal/database"
	"github.com/harmonic-chat/harmonic/internal/gateway"
	"github.com/harmonic-chat/harmonic/internal/protocol"
	"github.com/harmonic-chat/harmonic/internal/rest"
	"github.com/harmonic-chat/harmonic/internal/themes"
	"github.com/harmonic-chat/harmonic/pkg/snowflake"
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file")
	apiURL := flag.String("api", "", "API base URL (overrides config)")
	gatewayURL := flag.String("gateway", "", "Gateway URL (overrides config)")
	token := flag.String("token", "", "Auth token (overrides config)")
	themeName := flag.String("theme", "", "Theme name (overrides config)")
	flag.Parse()

	configDir, err := client.ConfigDir()
	if err != nil {
		log.Fatalf("Error resolving config directory: %v", err)
	}
	if *configPath == "" {
		*configPath = filepath.Join(configDir, "config.toml")
	}

	config, err := client.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}
	if *apiURL != "" {
		config.API.BaseURL = *apiURL
	}
	if *gatewayURL != "" {
		config.API.GatewayURL = *gatewayURL
	}
	if *token != "" {
		config.API.Token = *token
	}
	if *themeName != "" {
		config.Theme = *themeName
	}
	if config.API.Token == "" {
		log.Fatal("No auth token configured; set api.token in config.toml or pass -token")
	}

	theme := themes.GetTheme(config.ThemesDir, config.Theme)

	cachePath := config.Cache
	if cachePath == "" {
		cachePath = filepath.Join(configDir, "cache.db")
	}
	cache, err := database.New(cachePath)
	if err != nil {
		log.Printf("Warning: read-state cache unavailable: %v", err)
		cache = nil
	}

	api := rest.NewClient(config.API.BaseURL, config.API.Token)
	conn := gateway.NewConnection(config.API.GatewayURL, config.API.Token)
	session := client.NewSession(api, conn, cache)

	app := client.NewApp(session, theme)
	p := tea.NewProgram(
		app,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	// Push events are applied to the stores by the router on the gateway
	// read loop; the program is only told to re-render.
	session.Router.Notify = func(ev *protocol.Event) {
		var channelID snowflake.ID
		if id := gjson.GetBytes(ev.Payload, "channel_id"); id.Exists() {
			channelID, _ = snowflake.Parse(id.String())
		}
		p.Send(client.EventMsg{Type: ev.Type, ChannelID: channelID})
	}

	if _, err := p.Run(); err != nil {
		log.Fatalf("Error running program: %v", err)
	}
	if cache != nil {
		cache.Close()
	}
}
