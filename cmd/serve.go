package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kiesman99/mapframe/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start HTTP server for the map frame API",
	Long: `Start an HTTP server that provides a REST API for computing map frames
and rendering the configured style.

Examples:
  # Start server on default port 8080
  mapframe serve --style style.xml

  # Start server on custom port
  mapframe serve --style style.xml --port 3000

  # Start server with custom bind address and external renderer
  mapframe serve --bind 0.0.0.0 --port 8080 --style style.xml --engine exec`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	// Server configuration
	serveCmd.Flags().StringP("bind", "b", "localhost", "bind address")
	serveCmd.Flags().IntP("port", "p", 8080, "port to listen on")
	serveCmd.Flags().Duration("timeout", 30*time.Second, "request timeout")
	serveCmd.Flags().StringP("style", "s", "", "Mapnik XML style to compute and render frames for")

	// Bind flags to viper
	viper.BindPFlag("server.bind", serveCmd.Flags().Lookup("bind"))
	viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	viper.BindPFlag("server.timeout", serveCmd.Flags().Lookup("timeout"))
	viper.BindPFlag("server.style", serveCmd.Flags().Lookup("style"))
}

func runServe(cmd *cobra.Command, args []string) error {
	bind := viper.GetString("server.bind")
	port := viper.GetInt("server.port")
	timeout := viper.GetDuration("server.timeout")
	style := viper.GetString("server.style")

	addr := fmt.Sprintf("%s:%d", bind, port)

	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), nil))

	eng, err := newEngine()
	if err != nil {
		return err
	}

	if style != "" {
		if _, err := eng.Load(cmd.Context(), style); err != nil {
			return fmt.Errorf("failed to load style: %w", err)
		}
	} else {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: no style configured, rendering is disabled\n")
	}

	// Create server implementation
	apiServer := server.NewServer(server.Config{
		Version:    version,
		Calculator: newCalculator(eng, logger),
		Engine:     eng,
		EngineName: viper.GetString("engine"),
		Style:      style,
		Logger:     logger,
	})

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      server.NewRouter(apiServer, timeout),
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		fmt.Fprintf(cmd.ErrOrStderr(), "\nShutting down server...\n")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(ctx); err != nil {
			logger.Error("server shutdown error", "error", err)
		}
	}()

	fmt.Fprintf(cmd.ErrOrStderr(), "Starting mapframe server on %s\n", addr)
	fmt.Fprintf(cmd.ErrOrStderr(), "Health check: http://%s/api/v1/health\n", addr)
	fmt.Fprintf(cmd.ErrOrStderr(), "Frame endpoint: http://%s/api/v1/frame\n", addr)
	fmt.Fprintf(cmd.ErrOrStderr(), "Render endpoint: http://%s/api/v1/render\n", addr)

	if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("server error: %v", err)
	}

	return nil
}
