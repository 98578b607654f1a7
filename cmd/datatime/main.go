package main

import (
	"fmt"
	"os"

	"datatime/internal/app"
	"datatime/internal/config"

	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// configPath returns --config when given, else the default location.
func configPath(cmd *cobra.Command) (string, error) {
	if p, _ := cmd.Flags().GetString("config"); p != "" {
		return p, nil
	}
	defaults, err := app.GetDefaults()
	if err != nil {
		return "", fmt.Errorf("getting defaults: %w", err)
	}
	return defaults.ConfigPath, nil
}

// loadConfig reads the config file (defaults when absent) and applies every
// flag the user set explicitly.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := configPath(cmd)
	if err != nil {
		return nil, err
	}
	cfg, err := config.ReadOrDefault(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("field-separator") {
		cfg.Input.FieldSeparator, _ = flags.GetString("field-separator")
	}
	if flags.Changed("qualifier") {
		cfg.Input.Qualifier, _ = flags.GetString("qualifier")
	}
	if v, _ := flags.GetBool("mactime"); v {
		cfg.Timeline.Mode = "body"
	}
	if v, _ := flags.GetBool("delimited"); v {
		cfg.Timeline.Mode = "delimited"
	}
	if flags.Changed("timezone") {
		cfg.Timeline.Timezone, _ = flags.GetString("timezone")
	}
	if flags.Changed("allfields") {
		cfg.Timeline.AllFields, _ = flags.GetBool("allfields")
	}
	if flags.Changed("trim-data") {
		cfg.Timeline.TrimName, _ = flags.GetInt("trim-data")
	}
	if flags.Changed("hide-size") {
		cfg.Timeline.HideSize, _ = flags.GetBool("hide-size")
	}
	if flags.Changed("hide-time") {
		cfg.Timeline.HideTime, _ = flags.GetBool("hide-time")
	}
	if flags.Changed("start-date") {
		cfg.Timeline.StartDate, _ = flags.GetString("start-date")
	}
	if flags.Changed("end-date") {
		cfg.Timeline.EndDate, _ = flags.GetString("end-date")
	}
	if flags.Changed("index") {
		cfg.Index.Type, _ = flags.GetString("index")
	}

	var kinds []string
	for _, k := range []string{"modified", "accessed", "changed", "birthed"} {
		if v, _ := flags.GetBool(k); v {
			kinds = append(kinds, k)
		}
	}
	if len(kinds) > 0 {
		cfg.Timeline.Kinds = kinds
	}

	return cfg, nil
}

var rootCmd = &cobra.Command{
	Use:   "datatime [flags] [BODYFILE...]",
	Short: "Render body files as a chronological timeline",
	Long: `datatime reads Sleuth Kit body files and writes one timeline row per
distinct timestamp. Inputs may be files, directories, "-" for standard input,
or s3://bucket/key urls; names ending in .age are decrypted with the
configured identity.`,
	Version:      version,
	Args:         cobra.ArbitraryArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		logPath, _ := cmd.Flags().GetString("log")
		verbose, _ := cmd.Flags().GetBool("verbose")

		a, err := app.NewDTApp(cfg, app.Options{
			LogPath:    logPath,
			Verbose:    verbose,
			Stdin:      os.Stdin,
			Stderr:     os.Stderr,
			Passphrase: app.TerminalPassphrase(os.Stderr),
		})
		if err != nil {
			return err
		}
		defer a.Close()

		return a.Run(cmd.Context(), args, os.Stdout)
	},
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}
		path, err := configPath(cmd)
		if err != nil {
			return err
		}

		cfg := defaults.Config()

		if err := config.Init(path, cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", path)
		fmt.Printf("Log Dir:   %s\n", cfg.LogDir)
		fmt.Printf("Spill Dir: %s\n", cfg.Index.SpillDir)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := configPath(cmd)
		if err != nil {
			return err
		}
		cfg, err := config.ReadOrDefault(path)
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", path)
		m := &config.Manager{}
		return m.Write(os.Stdout, cfg)
	},
}

// key command
var keyCmd = &cobra.Command{
	Use:   "key",
	Short: "Manage the age identity used for encrypted inputs",
}

var keyGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Create a passphrase-protected identity and print its recipient",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfgPath, err := configPath(cmd)
		if err != nil {
			return err
		}
		cfg, err := config.ReadOrDefault(cfgPath)
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}
		path := defaults.IdentityFor(cfg)

		recipient, err := app.GenerateIdentity(path, os.Stderr)
		if err != nil {
			return fmt.Errorf("generating identity: %w", err)
		}

		fmt.Fprintf(os.Stderr, "Identity written to %s\n", path)
		fmt.Println(recipient)
		return nil
	},
}

func init() {
	rootCmd.SetVersionTemplate("{{.Name}} {{.Version}}\n")

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "Config file (default $DATATIME_CONFIG_PATH or ~/.config/datatime.toml)")

	f := rootCmd.Flags()
	f.StringP("field-separator", "t", "|", "Input field separator")
	f.StringP("qualifier", "q", "", `Input field qualifier ("" or '"')`)
	f.BoolP("mactime", "m", false, "Write body-format records instead of a table")
	f.BoolP("delimited", "d", false, "Write comma-delimited output")
	f.StringP("timezone", "z", "GMT", `Time zone, POSIX ("EST-5EDT,M3.2.0,M11.1.0") or IANA ("Europe/Berlin")`)
	f.BoolP("allfields", "a", false, "Append fields past the body layout to delimited output")
	f.StringP("log", "l", "", "Append diagnostics to this file")
	f.Int("trim-data", -1, "Truncate names to this many characters in columnar output")
	f.Bool("hide-size", false, "Omit the size column")
	f.Bool("hide-time", false, "Print dates without the time of day")
	f.String("start-date", "", "First date to include (yyyy-mm-dd)")
	f.String("end-date", "", "Last date to include (yyyy-mm-dd)")
	f.Bool("modified", false, "Use modification times")
	f.Bool("accessed", false, "Use access times")
	f.Bool("changed", false, "Use change times")
	f.Bool("birthed", false, "Use creation times")
	f.String("index", "", `Timeline index: "memory" or "sqlite"`)
	f.BoolP("verbose", "v", false, "Log debug diagnostics")
	rootCmd.MarkFlagsMutuallyExclusive("mactime", "delimited")

	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	// key subcommands
	keyCmd.AddCommand(keyGenerateCmd)

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(keyCmd)
}
