package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cyberinferno/tictactoe3d/config"
	"github.com/cyberinferno/tictactoe3d/game"
	"github.com/cyberinferno/tictactoe3d/gameserver"
	"github.com/cyberinferno/tictactoe3d/logger"
	"github.com/cyberinferno/tictactoe3d/notify"
	"github.com/cyberinferno/tictactoe3d/registry"
	"github.com/cyberinferno/tictactoe3d/webgate"
)

var (
	configPath string
	logLevel   string
	host       string
	port       int
	maxPlayers int
	webAddr    string
	noWeb      bool

	version = "0.1.0"
)

var rootCmd = &cobra.Command{
	Use:   "tictactoe3d",
	Short: "Authority server for two-player 3D tic-tac-toe",
	Long: `tictactoe3d runs the authority server for a two-player 4x4x4
tic-tac-toe match. TCP clients exchange newline-delimited JSON, browsers
join the same game over a websocket, and every accepted move is broadcast
to both players.`,
	Version: version,
	Run:     runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the game server",
	Long:  "Start the game server and, unless disabled, the web gateway",
	Run:   runServe,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("tictactoe3d v%s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to configuration file")
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&host, "host", "", "game server host (overrides config)")
	rootCmd.PersistentFlags().IntVarP(&port, "port", "p", 0, "game server port (overrides config)")
	rootCmd.PersistentFlags().IntVar(&maxPlayers, "max-players", 0, "player capacity (overrides config)")
	rootCmd.PersistentFlags().StringVar(&webAddr, "web-addr", "", "web gateway host:port (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&noWeb, "no-web", false, "disable the web gateway")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

func runServe(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := applyFlagOverrides(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	level, err := logger.ParseLevel(cfg.Log.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid log level: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewConsole(cfg.Server.Name, level)

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", logger.Field{Key: "error", Value: err})
		os.Exit(1)
	}

	session := game.NewSession()
	players := registry.NewRegistry(cfg.Server.MaxPlayers)

	var notifier *notify.Notifier
	if cfg.Webhook.URL != "" {
		notifier = notify.NewNotifier(cfg.Webhook.URL, log)
	}

	srv := gameserver.NewServer(gameserver.ServerConfig{
		Name:     cfg.Server.Name,
		Addr:     cfg.Server.Addr(),
		Game:     session,
		Registry: players,
		Logger:   log,
		Notifier: notifier,
	})

	if err := srv.Start(); err != nil {
		log.Error("failed to start game server", logger.Field{Key: "error", Value: err})
		os.Exit(1)
	}

	var gate *webgate.Gate
	if !cfg.Web.Disabled {
		gate = webgate.NewGate(webgate.GateConfig{
			Addr:   cfg.Web.Addr(),
			Server: srv,
			Logger: log,
		})

		if err := gate.Start(); err != nil {
			log.Error("failed to start web gateway", logger.Field{Key: "error", Value: err})
			srv.Stop()
			os.Exit(1)
		}
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	log.Info("shutting down")

	if gate != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		_ = gate.Shutdown(ctx)
		cancel()
	}

	srv.Stop()
	log.Info("server stopped successfully")
}

func loadConfig() (*config.Config, error) {
	if configPath == "" {
		return config.Default()
	}

	return config.Load(configPath)
}

// applyFlagOverrides lets explicit flags win over both the file and the
// environment.
func applyFlagOverrides(cfg *config.Config) error {
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}

	if host != "" {
		cfg.Server.Host = host
	}

	if port != 0 {
		cfg.Server.Port = port
	}

	if maxPlayers != 0 {
		cfg.Server.MaxPlayers = maxPlayers
	}

	if webAddr != "" {
		webHost, webPort, err := net.SplitHostPort(webAddr)
		if err != nil {
			return fmt.Errorf("invalid web-addr %q: %w", webAddr, err)
		}

		value, err := strconv.Atoi(webPort)
		if err != nil {
			return fmt.Errorf("invalid web-addr port %q: %w", webPort, err)
		}

		cfg.Web.Host = webHost
		cfg.Web.Port = value
	}

	if noWeb {
		cfg.Web.Disabled = true
	}

	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
