package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jamesainslie/triage/pkg/triage/config"
	"github.com/jamesainslie/triage/pkg/triage/logging"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "triage [path]",
		Short: "Sort a folder of images into tag folders",
		Long: `Triage shows the images in a folder one at a time. Give each one a tag
and it is moved into a subfolder named after the tag. Skip an image to
come back to it later, and undo the last few moves if you change your mind.

Running triage with no subcommand starts the web interface.

Examples:
  triage                     # Start the web UI and pick a folder in the browser
  triage ~/Pictures/inbox    # Start the web UI on a folder
  triage tui ~/Pictures      # Sort in the terminal
  triage scan --json .       # List pending images
  triage stats .             # Count files per tag folder
  triage history             # View recent moves`,
		Args:          cobra.MaximumNArgs(1),
		RunE:          runServe,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.config/triage/config.yaml)")
	rootCmd.PersistentFlags().StringSliceP("ext", "e", nil, "image extensions to pick up (e.g. jpg,png)")
	rootCmd.PersistentFlags().BoolP("dry-run", "d", false, "don't move files (preview only)")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "minimal output")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "debug output")

	// Bind flags to viper
	_ = viper.BindPFlag("extensions", rootCmd.PersistentFlags().Lookup("ext"))
	_ = viper.BindPFlag("dry_run", rootCmd.PersistentFlags().Lookup("dry-run"))
	_ = viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	serveFlags(rootCmd)
}

// initConfig points viper at an explicit config file if one was given.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}
}

// Execute runs the root command.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		printError("%v", err)
	}
	return err
}

// loadConfig resolves configuration from file, environment and flags.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadWith(viper.GetViper())
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// initLogging starts file logging. Verbose mode mirrors debug output to
// stderr unless the terminal UI owns the screen.
func initLogging(cfg *config.Config, tuiMode bool) error {
	opts, err := cfg.Logging.Options()
	if err != nil {
		return err
	}
	opts.TUIMode = tuiMode
	if getVerbose() {
		opts.Level = "debug"
		opts.ConsoleLevel = "debug"
	}
	if err := logging.Init(opts); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	return nil
}

// resolveRoot turns the optional path argument into an absolute directory.
// With no argument the configured default_root is used, and an empty
// result means no folder was chosen.
func resolveRoot(args []string, cfg *config.Config) (string, error) {
	path := cfg.DefaultRoot
	if len(args) > 0 {
		path = args[0]
	}
	if path == "" {
		return "", nil
	}

	expanded, err := config.ExpandPath(path)
	if err != nil {
		return "", fmt.Errorf("failed to expand path: %w", err)
	}
	absPath, err := filepath.Abs(expanded)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("path does not exist: %s", absPath)
		}
		return "", fmt.Errorf("cannot access path: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("path is not a directory: %s", absPath)
	}
	return absPath, nil
}

// requireRoot is resolveRoot for commands that need a folder, defaulting to
// the current directory.
func requireRoot(args []string, cfg *config.Config) (string, error) {
	root, err := resolveRoot(args, cfg)
	if err != nil || root != "" {
		return root, err
	}
	return resolveRoot([]string{"."}, cfg)
}

// getVerbose returns true if verbose mode is enabled.
func getVerbose() bool {
	return viper.GetBool("verbose")
}

// getQuiet returns true if quiet mode is enabled.
func getQuiet() bool {
	return viper.GetBool("quiet")
}

// printVerbose prints a message if verbose mode is enabled.
func printVerbose(format string, args ...interface{}) {
	if getVerbose() && !getQuiet() {
		fmt.Fprintf(os.Stderr, "[DEBUG] "+format+"\n", args...)
	}
}

// printInfo prints a message if quiet mode is not enabled.
func printInfo(format string, args ...interface{}) {
	if !getQuiet() {
		fmt.Printf(format+"\n", args...)
	}
}

// printError prints an error message to stderr.
func printError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}
