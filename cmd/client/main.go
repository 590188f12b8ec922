package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"time"

	"livechat/internal/client"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
)

func main() {
	baseURL := os.Getenv("LIVECHAT_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8747"
	}
	email := os.Getenv("LIVECHAT_EMAIL")
	password := os.Getenv("LIVECHAT_PASSWORD")
	if email == "" || password == "" {
		log.Fatal("LIVECHAT_EMAIL and LIVECHAT_PASSWORD are required")
	}

	// The terminal belongs to the UI; only errors are logged.
	logger := zap.NewNop()
	if os.Getenv("DEBUG") != "" {
		dev, err := zap.NewDevelopment()
		if err == nil {
			logger = dev
		}
	}

	api, err := client.NewAPIClient(baseURL)
	if err != nil {
		log.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	profile, err := api.Login(ctx, email, password)
	var apiErr *client.APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
		profile, err = api.Signup(ctx, email, password)
	}
	if err != nil {
		log.Fatal(err)
	}

	store := client.NewStore(profile.ID, client.RealClock(), api, logger)

	contacts, err := api.DMContacts(ctx)
	if err != nil {
		log.Fatal(err)
	}
	store.SetContacts(contacts)

	channels, err := api.Channels(ctx)
	if err != nil {
		log.Fatal(err)
	}
	store.SetChannels(channels)

	ws, err := client.DialWS(ctx, api.BaseURL(), api.Jar(), logger)
	if err != nil {
		log.Fatal(err)
	}
	defer ws.Close()
	ws.Start()

	p := tea.NewProgram(client.NewModel(*profile, store, api, ws, logger))
	if _, err := p.Run(); err != nil {
		log.Fatal(err)
	}
}
