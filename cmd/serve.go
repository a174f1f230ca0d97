package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/koyak/kombat_backend/internal/database"
	"github.com/koyak/kombat_backend/internal/logging"
	"github.com/koyak/kombat_backend/internal/server"
)

var (
	port    int
	dataDir string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Kombat server",
	Long: `Start the Kombat server with the specified configuration.
This will open the match database, start the video worker and begin
accepting battle and spectator connections.`,
	PreRun: func(cmd *cobra.Command, args []string) {
		if err := os.MkdirAll(dataDir, 0755); err != nil {
			fmt.Printf("Error creating data directory: %v\n", err)
			os.Exit(1)
		}

		if _, err := os.Stat(".env"); os.IsNotExist(err) {
			fmt.Println("Warning: .env file not found. Make sure to create it with your OPENAI_API_KEY")
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(); err != nil {
			fmt.Printf("Warning: Error loading .env file: %v\n", err)
		}

		if err := logging.InitDefaultLogger(logging.Config{
			Level:   logging.INFO,
			Prefix:  "kombat",
			Colored: true,
		}); err != nil {
			return fmt.Errorf("failed to initialize logger: %v", err)
		}

		apiKey := os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is not set in the environment variables")
		}

		cfg := server.DefaultConfig()
		cfg.Port = fmt.Sprintf("%d", port)
		cfg.DataDir = dataDir
		cfg.OpenAIKey = apiKey
		cfg.SocialDataKey = os.Getenv("SOCIALDATA_API_KEY")
		cfg.JudgeModel = os.Getenv("KOMBAT_JUDGE_MODEL")
		cfg.ProfilerModel = os.Getenv("KOMBAT_PROFILER_MODEL")
		if timeout := os.Getenv("KOMBAT_MATCH_TIMEOUT"); timeout != "" {
			d, err := time.ParseDuration(timeout)
			if err != nil {
				return fmt.Errorf("invalid KOMBAT_MATCH_TIMEOUT: %v", err)
			}
			cfg.MatchTimeout = d
		}

		db, err := database.New(cfg.DataDir)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %v", err)
		}
		defer db.Close()

		srv, err := server.NewServer(cfg, db)
		if err != nil {
			return fmt.Errorf("failed to create server: %v", err)
		}

		logging.Info("Kombat server listening", map[string]interface{}{"port": cfg.Port})
		return srv.Run(":" + cfg.Port)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&port, "port", "p", 8080, "Port to run the server on")
	serveCmd.Flags().StringVar(&dataDir, "data-dir", "data", "Directory for the match database")
	rootCmd.AddCommand(serveCmd)
}
