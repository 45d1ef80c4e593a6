package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/taskdeck-dev/taskdeck/internal/cli/config"
)

// NewInitCmd creates the init command
func NewInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init <ip-address>",
		Short: "Register a Taskdeck server in this project",
		Args:  cobra.ExactArgs(1),
		RunE:  runInit,
	}
}

func runInit(cmd *cobra.Command, args []string) error {
	ipAddress := args[0]

	currentDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}

	configPath := filepath.Join(currentDir, config.ConfigFileName)

	var cfg *config.Config
	isNewConfig := false

	if _, err := os.Stat(configPath); err == nil {
		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load existing config: %w", err)
		}
		fmt.Println("Found existing taskdeck.json")
	} else {
		cfg = config.DefaultConfig()
		isNewConfig = true
	}

	serverExists := false
	for _, server := range cfg.Servers {
		if server.IP == ipAddress {
			serverExists = true
			break
		}
	}

	if serverExists {
		fmt.Printf("Server with IP %s already exists in taskdeck.json\n", ipAddress)
	} else {
		alias := "production"
		if len(cfg.Servers) > 0 {
			alias = fmt.Sprintf("server-%d", len(cfg.Servers)+1)
		}
		cfg.Servers = append(cfg.Servers, config.Server{IP: ipAddress, Alias: alias})

		if err := cfg.Save(configPath); err != nil {
			return err
		}

		if isNewConfig {
			fmt.Printf("Created taskdeck.json with server %s (%s)\n", alias, ipAddress)
		} else {
			fmt.Printf("Added server %s (%s) to taskdeck.json\n", alias, ipAddress)
		}
	}

	fmt.Println("\nNext: run 'taskdeck login' to authenticate")
	return nil
}
