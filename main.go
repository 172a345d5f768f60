package main

import (
	"fmt"
	"os"

	"quill/internal/config"
	"quill/internal/logger"
	"quill/internal/ui"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}
	if cfg.APIKey == "" {
		fmt.Println("Error: no API key configured. Set OPENAI_API_KEY or add api_key to the config file.")
		os.Exit(1)
	}

	logger.Init()

	p := ui.NewProgram(cfg)
	finalModel, err := p.Run()
	if err != nil {
		fmt.Printf("Error: %v", err)
		os.Exit(1)
	}
	if m, ok := finalModel.(*ui.Model); ok {
		if m.Conn != nil {
			_ = m.Conn.Close()
		}
	}
}
