package main

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jamesainslie/triage/pkg/triage/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `Manage triage configuration settings.

Configuration is loaded from:
  1. $XDG_CONFIG_HOME/triage/config.yaml (if set)
  2. ~/.config/triage/config.yaml

Environment variables can override config file settings using the TRIAGE_ prefix:
  TRIAGE_ADDR=0.0.0.0:8080
  TRIAGE_DEFAULT_ROOT=~/Pictures/inbox
  TRIAGE_SESSION_SECRET=change-me`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the current configuration settings from all sources.`,
	RunE:  runConfigShow,
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Edit configuration file",
	Long: `Open the configuration file in your default editor.

The editor is determined by:
  1. $VISUAL environment variable
  2. $EDITOR environment variable
  3. Falls back to 'vi'

If the config file doesn't exist, a default one will be created first.`,
	RunE: runConfigEdit,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create default configuration file",
	Long:  `Create a default configuration file if one doesn't exist.`,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show configuration file path",
	Long:  `Display the path to the configuration file.`,
	RunE:  runConfigPath,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configEditCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
	rootCmd.AddCommand(configCmd)
}

// runConfigShow displays the current configuration.
func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if configFile := viper.ConfigFileUsed(); configFile != "" {
		if _, statErr := os.Stat(configFile); statErr == nil {
			fmt.Printf("Config file: %s\n\n", configFile)
		} else {
			fmt.Println("Config file: (using defaults, no file found)")
			fmt.Println()
		}
	} else {
		fmt.Println("Config file: (using defaults, no file found)")
		fmt.Println()
	}

	secret := "(generated per run)"
	if cfg.Session.Secret != "" {
		secret = "(set)"
	}
	storePath := cfg.Session.StorePath
	if storePath == "" {
		storePath = config.DefaultStorePath()
	}

	fmt.Println("Current Configuration:")
	fmt.Println("----------------------")
	fmt.Printf("addr:                 %s\n", cfg.Addr)
	fmt.Printf("default_root:         %s\n", cfg.DefaultRoot)
	fmt.Printf("extensions:           %v\n", cfg.Extensions)
	fmt.Printf("history_size:         %d\n", cfg.HistorySize)
	fmt.Printf("recent_tags:          %d\n", cfg.RecentTags)
	fmt.Printf("watch:                %t\n", cfg.Watch)
	fmt.Printf("manifest.enabled:     %t\n", cfg.Manifest.Enabled)
	fmt.Printf("manifest.path:        %s\n", cfg.Manifest.Path)
	fmt.Printf("manifest.retention:   %d days\n", cfg.Manifest.RetentionDays)
	fmt.Printf("session.secret:       %s\n", secret)
	fmt.Printf("session.cookie:       %s\n", cfg.Session.Cookie)
	fmt.Printf("session.store_path:   %s\n", storePath)
	fmt.Printf("session.ttl:          %s\n", cfg.Session.TTL)
	fmt.Printf("logging.level:        %s\n", cfg.Logging.Level)

	fmt.Println("\nEnvironment Overrides:")
	fmt.Println("----------------------")
	envVars := []string{
		"TRIAGE_ADDR",
		"TRIAGE_DEFAULT_ROOT",
		"TRIAGE_EXTENSIONS",
		"TRIAGE_HISTORY_SIZE",
		"TRIAGE_RECENT_TAGS",
		"TRIAGE_WATCH",
		"TRIAGE_MANIFEST_ENABLED",
		"TRIAGE_MANIFEST_PATH",
		"TRIAGE_SESSION_COOKIE",
		"TRIAGE_SESSION_STORE_PATH",
		"TRIAGE_LOGGING_LEVEL",
	}

	anyOverrides := false
	for _, name := range envVars {
		if val := os.Getenv(name); val != "" {
			fmt.Printf("%s=%s\n", name, val)
			anyOverrides = true
		}
	}
	if os.Getenv("TRIAGE_SESSION_SECRET") != "" {
		fmt.Println("TRIAGE_SESSION_SECRET=(set)")
		anyOverrides = true
	}
	if !anyOverrides {
		fmt.Println("(none)")
	}

	return nil
}

// runConfigEdit opens the config file in an editor.
func runConfigEdit(cmd *cobra.Command, args []string) error {
	configPath, err := config.WriteDefault()
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	editor := os.Getenv("VISUAL")
	if editor == "" {
		editor = os.Getenv("EDITOR")
	}
	if editor == "" {
		editor = "vi"
	}

	printVerbose("Opening %s with %s", configPath, editor)

	editorCmd := exec.Command(editor, configPath)
	editorCmd.Stdin = os.Stdin
	editorCmd.Stdout = os.Stdout
	editorCmd.Stderr = os.Stderr

	if err := editorCmd.Run(); err != nil {
		return fmt.Errorf("editor command failed: %w", err)
	}

	return nil
}

// runConfigInit creates a default config file.
func runConfigInit(cmd *cobra.Command, args []string) error {
	configPath, err := config.ConfigPath()
	if err != nil {
		return err
	}

	if _, err := os.Stat(configPath); err == nil {
		printInfo("Config file already exists: %s", configPath)
		printInfo("Use 'triage config edit' to modify it.")
		return nil
	}

	if _, err := config.WriteDefault(); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	printInfo("Created default config file: %s", configPath)
	return nil
}

// runConfigPath shows the config file path.
func runConfigPath(cmd *cobra.Command, args []string) error {
	configPath, err := config.ConfigPath()
	if err != nil {
		return err
	}

	fmt.Println(configPath)

	if _, err := os.Stat(configPath); err == nil {
		printVerbose("File exists")
	} else if os.IsNotExist(err) {
		printVerbose("File does not exist (will use defaults)")
	}

	return nil
}
