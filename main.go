// Command hazardrun starts the hazard run game server.
//
// It supports three commands:
//  1. "server" (default) – runs the HTTP server exposing the game websocket,
//     REST inspection endpoints, Prometheus metrics and an /mcp HTTP endpoint
//  2. "mcp" – runs an MCP stdio server against a running API, starting an
//     internal one if none answers
//  3. "check-config" – validates a configuration file and prints the result
//
// Flags and HAZARDRUN_* environment variables override the JSON config file.
// A .env file in the working directory is loaded first when present.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"
	"golang.org/x/sync/errgroup"

	"github.com/wricardo/hazardrun/api"
	"github.com/wricardo/hazardrun/game/config"
	"github.com/wricardo/hazardrun/game/service"
	"github.com/wricardo/hazardrun/game/session"
	"github.com/wricardo/hazardrun/metrics"
	"github.com/wricardo/hazardrun/notify"
	"github.com/wricardo/hazardrun/transport/mcp"
	"github.com/wricardo/hazardrun/transport/websocket"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Hazard Run Server"
)

const (
	defaultConfigPath = "hazardrun.json"
	defaultAPIURL     = "http://localhost:8080"
	shutdownTimeout   = 10 * time.Second
)

func main() {
	// Load .env file if it exists (ignore error if not found)
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Warning: Error loading .env file: %v\n", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func configFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Value:   defaultConfigPath,
			Usage:   "JSON configuration file",
			Sources: cli.EnvVars("HAZARDRUN_CONFIG"),
		},
		&cli.StringFlag{
			Name:    "host",
			Usage:   "HTTP server host",
			Sources: cli.EnvVars("HAZARDRUN_HOST"),
		},
		&cli.IntFlag{
			Name:    "port",
			Usage:   "HTTP server port",
			Sources: cli.EnvVars("HAZARDRUN_PORT", "PORT"),
		},
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "debug, info, warn or error",
			Sources: cli.EnvVars("HAZARDRUN_LOG_LEVEL"),
		},
		&cli.StringFlag{
			Name:    "log-format",
			Usage:   "console or json",
			Sources: cli.EnvVars("HAZARDRUN_LOG_FORMAT"),
		},
		&cli.DurationFlag{
			Name:    "draw-delay",
			Usage:   "draw the next hazard automatically after this delay (0 leaves draws to players)",
			Sources: cli.EnvVars("HAZARDRUN_DRAW_DELAY"),
		},
		&cli.StringFlag{
			Name:    "nats-url",
			Usage:   "publish lifecycle events to this NATS server",
			Sources: cli.EnvVars("HAZARDRUN_NATS_URL", "NATS_URL"),
		},
	}
}

func ngrokFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:    "ngrok",
			Usage:   "Enable ngrok tunnel",
			Sources: cli.EnvVars("NGROK_ENABLED"),
		},
		&cli.StringFlag{
			Name:    "ngrok-auth",
			Usage:   "Ngrok auth token",
			Sources: cli.EnvVars("NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN"),
		},
		&cli.StringFlag{
			Name:    "ngrok-domain",
			Usage:   "Custom ngrok domain (optional)",
			Sources: cli.EnvVars("NGROK_DOMAIN"),
		},
	}
}

func newApp() *cli.Command {
	serverCmd := &cli.Command{
		Name:    "server",
		Aliases: []string{"http"},
		Usage:   "Run the game server with websocket, REST, metrics and MCP endpoints",
		Flags:   append(configFlags(), ngrokFlags()...),
		Action:  runServer,
	}

	return &cli.Command{
		Name:    "hazardrun",
		Usage:   AppName,
		Version: Version,
		Flags:   append(configFlags(), ngrokFlags()...),
		Action:  runServer,
		Commands: []*cli.Command{
			serverCmd,
			{
				Name:    "mcp",
				Aliases: []string{"stdio-mcp", "mcp-stdio"},
				Usage:   "Run an MCP stdio server proxying to the REST API",
				Flags: append(configFlags(), &cli.StringFlag{
					Name:    "api-url",
					Value:   defaultAPIURL,
					Usage:   "REST API to proxy; an internal server starts if it does not answer",
					Sources: cli.EnvVars("HAZARDRUN_API_URL"),
				}),
				Action: runStdioMCP,
			},
			{
				Name:   "check-config",
				Usage:  "Validate the configuration and print the effective values",
				Flags:  configFlags(),
				Action: checkConfig,
			},
		},
	}
}

// loadConfig reads the config file and applies flag overrides. A missing
// file is only an error when it was asked for explicitly.
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	path := cmd.String("config")
	cfg, err := config.Load(path)
	if err != nil {
		if !errors.Is(err, config.ErrConfigNotFound) || cmd.IsSet("config") {
			return nil, err
		}
		cfg = config.Default()
	}

	if cmd.IsSet("host") {
		cfg.Server.Host = cmd.String("host")
	}
	if cmd.IsSet("port") {
		cfg.Server.Port = int(cmd.Int("port"))
	}
	if cmd.IsSet("log-level") {
		cfg.Log.Level = cmd.String("log-level")
	}
	if cmd.IsSet("log-format") {
		cfg.Log.Format = cmd.String("log-format")
	}
	if cmd.IsSet("draw-delay") {
		cfg.Game.DrawDelay = config.Duration(cmd.Duration("draw-delay"))
	}
	if cmd.IsSet("nats-url") {
		cfg.NATS.URL = cmd.String("nats-url")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setupLogging configures the global zerolog logger
func setupLogging(cfg config.LogConfig, out *os.File) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if strings.EqualFold(cfg.Format, "json") {
		log.Logger = zerolog.New(out).With().Timestamp().Logger()
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339})
	}
	return log.Logger
}

// stack is the wired game server
type stack struct {
	cfg       *config.Config
	manager   *session.Manager
	hub       *websocket.Hub
	recorder  *metrics.Recorder
	publisher *notify.Publisher
	handler   http.Handler
}

// buildStack wires registry, hub, router and HTTP surface. mcpURL is the
// address the /mcp endpoint proxies to; empty disables it.
func buildStack(cfg *config.Config, logger zerolog.Logger, mcpURL string) (*stack, error) {
	s := &stack{
		cfg: cfg,
		manager: session.NewManager(
			session.WithRules(cfg.Rules()),
			session.WithIDLength(cfg.Game.SessionIDLength),
		),
		recorder: metrics.New(),
	}

	s.hub = websocket.NewHub(
		websocket.WithLogger(logger.With().Str("component", "hub").Logger()),
		websocket.WithObserver(s.recorder),
	)

	routerOpts := []service.Option{
		service.WithLogger(logger.With().Str("component", "router").Logger()),
		service.WithRecorder(s.recorder),
		service.WithScheduler(s.hub, cfg.DrawDelay()),
	}
	if cfg.NATS.URL != "" {
		publisher, err := notify.Connect(cfg.NATS.URL, cfg.NATS.Subject, logger)
		if err != nil {
			return nil, err
		}
		s.publisher = publisher
		routerOpts = append(routerOpts, service.WithNotifier(publisher))
	}
	s.hub.SetHandler(service.NewRouter(s.manager, s.hub, routerOpts...))

	apiOpts := []api.Option{
		api.WithLogger(logger.With().Str("component", "api").Logger()),
		api.WithVersion(Version),
		api.WithMetrics(s.recorder.Handler()),
	}
	if mcpURL != "" {
		apiOpts = append(apiOpts, api.WithMCP(mcp.NewClient(mcpURL, Version).HTTPHandler()))
	}
	s.handler = api.NewServer(s.manager, s.hub, apiOpts...)
	return s, nil
}

func (s *stack) close() {
	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to drain nats connection")
		}
	}
}

// loopbackURL returns the URL local clients use to reach addr
func loopbackURL(host string, port int) string {
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return fmt.Sprintf("http://%s", net.JoinHostPort(host, fmt.Sprint(port)))
}

// runServer starts the HTTP server with websocket hub, REST API, metrics and
// an /mcp proxy endpoint. If ngrok is enabled it also provisions a public tunnel.
func runServer(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := setupLogging(cfg.Log, os.Stdout)
	logger.Info().Str("version", Version).Msgf("Starting %s", AppName)

	addr := cfg.Addr()
	st, err := buildStack(cfg, logger, loopbackURL(cfg.Server.Host, cfg.Server.Port))
	if err != nil {
		return err
	}
	defer st.close()

	httpServer := &http.Server{
		Addr:        addr,
		Handler:     st.handler,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go st.hub.Run(hubCtx)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info().
			Str("addr", addr).
			Dur("draw_delay", cfg.DrawDelay()).
			Bool("nats", st.publisher != nil).
			Msg("HTTP server listening")
		logger.Info().Msgf("WebSocket: ws://%s/ws", addr)
		logger.Info().Msgf("REST API: http://%s/api/sessions", addr)
		logger.Info().Msgf("MCP endpoint: http://%s/mcp", addr)

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	})

	if cmd.Bool("ngrok") {
		g.Go(func() error {
			return serveNgrok(gctx, cmd, st.handler, logger)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("Shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("HTTP server shutdown error")
		}
		stopHub()
		<-st.hub.Done()
		return nil
	})

	err = g.Wait()
	logger.Info().Msg("Server stopped")
	return err
}

// serveNgrok serves handler through an ngrok tunnel until ctx is done.
// A missing auth token or tunnel failure is logged and does not stop the server.
func serveNgrok(ctx context.Context, cmd *cli.Command, handler http.Handler, logger zerolog.Logger) error {
	authToken := cmd.String("ngrok-auth")
	if authToken == "" {
		logger.Warn().Msg("Ngrok enabled but no auth token provided (use --ngrok-auth, NGROK_AUTHTOKEN, or NGROK_AUTH_TOKEN)")
		return nil
	}

	var tunnel ngrokConfig.Tunnel
	if domain := cmd.String("ngrok-domain"); domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(domain))
		logger.Info().Str("domain", domain).Msg("Using custom ngrok domain")
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(authToken))
	if err != nil {
		logger.Error().Err(err).Msg("Failed to start ngrok tunnel")
		return nil
	}

	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			logger.Warn().Err(err).Msg("Failed to close ngrok tunnel")
		}
	}()

	url := tun.URL()
	logger.Info().Str("url", url).Msg("Ngrok tunnel established")
	logger.Info().Msgf("  WebSocket (ngrok): %s/ws", strings.Replace(url, "https://", "wss://", 1))
	logger.Info().Msgf("  MCP endpoint (ngrok): %s/mcp", url)

	if err := http.Serve(tun, handler); err != nil && !errors.Is(err, http.ErrServerClosed) && ctx.Err() == nil {
		logger.Warn().Err(err).Msg("Ngrok server error")
	}
	logger.Info().Msg("Ngrok tunnel closed")
	return nil
}

// runStdioMCP runs an MCP stdio server. It reuses the API at --api-url when
// it answers; otherwise it starts an internal stack on a random loopback port.
// Logs go to stderr since stdout carries the protocol.
func runStdioMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := setupLogging(cfg.Log, os.Stderr)

	baseURL := strings.TrimRight(cmd.String("api-url"), "/")
	if !apiAvailable(ctx, baseURL) {
		logger.Info().Str("api_url", baseURL).Msg("No external API server found, starting internal HTTP server")

		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("failed to get available port: %w", err)
		}
		st, err := buildStack(cfg, logger, "")
		if err != nil {
			listener.Close()
			return err
		}
		defer st.close()

		hubCtx, stopHub := context.WithCancel(ctx)
		defer stopHub()
		go st.hub.Run(hubCtx)

		internal := &http.Server{Handler: st.handler}
		go func() {
			if err := internal.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error().Err(err).Msg("Internal HTTP server error")
			}
		}()
		defer internal.Close()

		baseURL = "http://" + listener.Addr().String()
	}

	logger.Info().Str("api_url", baseURL).Msg("MCP stdio server ready")
	if err := server.ServeStdio(mcp.NewClient(baseURL, Version).GetMCPServer()); err != nil {
		return fmt.Errorf("MCP stdio server error: %w", err)
	}
	return nil
}

func apiAvailable(ctx context.Context, baseURL string) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/api/health", nil)
	if err != nil {
		return false
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func checkConfig(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.Root().Writer, "%s\n", out)
	return nil
}
