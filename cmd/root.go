// Package cmd implements the command-line interface for the lead scraper
// service. It provides the root command and subcommands for serving the job
// API and inspecting scrape jobs.
package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joho/godotenv"
	"github.com/jonesrussell/leadscraper/cmd/jobs"
	"github.com/jonesrussell/leadscraper/cmd/serve"
)

var (
	// cfgFile holds the path to the configuration file.
	cfgFile string

	// Debug enables debug mode for all commands
	Debug bool

	rootCmd = &cobra.Command{
		Use:   "leadscraper",
		Short: "A scrape-job processing server",
		Long:  `A server that accepts scrape jobs from an external workflow engine, runs the extraction out of band, and reports the outcome back.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
)

// Execute runs the root command
func Execute() error {
	// Load .env file early so environment variables are available
	_ = godotenv.Load()

	// Parse flags early to get debug flag before creating logger
	_ = rootCmd.ParseFlags(os.Args[1:])

	if err := initConfig(); err != nil {
		return fmt.Errorf("failed to initialize configuration: %w", err)
	}

	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"",
		"config file (default is ./config.yaml)",
	)
	rootCmd.PersistentFlags().BoolVar(&Debug, "debug", false, "enable debug mode")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("leadscraper version %s\n", viper.GetString("app.version"))
		},
	})

	rootCmd.AddCommand(serve.Command())
	rootCmd.AddCommand(jobs.Command())
}

// initConfig reads in config file and ENV variables if set.
func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("./config")
	}

	// Enable automatic environment variable reading BEFORE setting defaults
	// so environment variables take precedence over defaults
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults()

	// Config file is optional - environment variables and defaults cover
	// the full surface
	if err := viper.ReadInConfig(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Config file not found: %v (using defaults and environment variables)\n", err)
	}

	if err := bindCommandLineFlags(); err != nil {
		return err
	}

	if err := bindEnvVars(); err != nil {
		return err
	}

	setupDevelopmentLogging()

	return nil
}

// bindCommandLineFlags binds command-line flags to Viper.
func bindCommandLineFlags() error {
	if err := viper.BindPFlag("app.debug", rootCmd.PersistentFlags().Lookup("debug")); err != nil {
		return fmt.Errorf("failed to bind debug flag: %w", err)
	}
	if err := viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config")); err != nil {
		return fmt.Errorf("failed to bind config flag: %w", err)
	}
	return nil
}

// bindEnvVars maps environment variables to config keys. The webhook and
// admin variables keep their historical names so existing deployments keep
// working.
func bindEnvVars() error {
	binds := map[string][]string{
		"app.environment":             {"APP_ENV"},
		"app.debug":                   {"APP_DEBUG"},
		"logger.level":                {"LOG_LEVEL"},
		"logger.encoding":             {"LOG_FORMAT"},
		"server.host":                 {"SERVER_HOST"},
		"server.port":                 {"SERVER_PORT"},
		"database.host":               {"DATABASE_HOST"},
		"database.port":               {"DATABASE_PORT"},
		"database.user":               {"DATABASE_USER"},
		"database.password":           {"DATABASE_PASSWORD", "DATABASE_KEY"},
		"database.dbname":             {"DATABASE_NAME"},
		"database.sslmode":            {"DATABASE_SSLMODE"},
		"admin.id":                    {"ADMIN_ID"},
		"webhook.completion_url":      {"WEBHOOK_COMPLETION_URL", "N8N_WEBHOOK_C"},
		"webhook.test_url":            {"WEBHOOK_TEST_URL", "N8N_WEBHOOK_T"},
		"scraper.default_max_results": {"DEFAULT_MAX_RESULTS"},
		"scraper.timeout":             {"SCRAPE_TIMEOUT"},
		"scraper.max_concurrent_jobs": {"MAX_CONCURRENT_JOBS"},
		"scraper.base_url":            {"SCRAPE_BASE_URL"},
		"cache.ttl_minutes":           {"CACHE_TTL_MINUTES"},
	}

	for key, envs := range binds {
		args := append([]string{key}, envs...)
		if err := viper.BindEnv(args...); err != nil {
			return fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}
	return nil
}

// setupDevelopmentLogging configures development logging settings based on
// environment and debug flag.
func setupDevelopmentLogging() {
	debugFlag := Debug || viper.GetBool("app.debug")
	isDev := viper.GetString("app.environment") == "development"

	if debugFlag {
		viper.Set("logger.level", "debug")
	}

	if isDev {
		viper.Set("logger.development", true)
		viper.Set("logger.encoding", "console")
	}

	Debug = debugFlag
}

// setDefaults sets default configuration values
func setDefaults() {
	// App defaults - production safe
	viper.SetDefault("app", map[string]any{
		"name":        "leadscraper",
		"version":     "1.0.0",
		"environment": "production",
		"debug":       false,
	})

	viper.SetDefault("logger", map[string]any{
		"level":        "info",
		"development":  false,
		"encoding":     "json",
		"output_paths": []string{"stdout"},
	})

	viper.SetDefault("server", map[string]any{
		"host":          "0.0.0.0",
		"port":          5000,
		"read_timeout":  "15s",
		"write_timeout": "30s",
		"idle_timeout":  "60s",
	})

	viper.SetDefault("database", map[string]any{
		"host":    "127.0.0.1",
		"port":    "5432",
		"user":    "leadscraper",
		"dbname":  "leadscraper",
		"sslmode": "disable",
	})

	viper.SetDefault("admin", map[string]any{
		"id": "1",
	})

	viper.SetDefault("scraper", map[string]any{
		"default_max_results": 50,
		"timeout":             "10m",
		"max_concurrent_jobs": 4,
		"base_url":            "https://www.google.com/maps/search",
		"user_agent":          "leadscraper/1.0",
	})

	viper.SetDefault("cache", map[string]any{
		"ttl_minutes": 0,
	})
}
