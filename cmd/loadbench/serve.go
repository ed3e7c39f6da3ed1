// cmd/loadbench/serve.go
package loadbench

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mwiater/loadbench/internal/config"
	"github.com/mwiater/loadbench/internal/logging"
	"github.com/mwiater/loadbench/internal/server"
)

var serveViper = config.New()

// serveCmd runs the static file server the run command spawns before
// benchmarking. It can also be started by hand to inspect the build.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the built client over HTTP",
	Long:  `The 'serve' command serves the given directory over HTTP with caching disabled and the application/wasm content type registered. It runs until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := logging.New(serveViper.GetString("log-level"), serveViper.GetString("log-format"), cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		addr := fmt.Sprintf("%s:%d", serveViper.GetString("host"), serveViper.GetInt("port"))
		return server.Serve(ctx, addr, serveViper.GetString("serve-dir"), logging.Component(logger, "server"))
	},
}

func init() {
	f := serveCmd.Flags()
	f.String("dir", "web", "Directory to serve")
	f.String("host", "127.0.0.1", "Interface to listen on")
	f.Int("port", 8080, "Port to listen on")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text or json)")

	_ = serveViper.BindPFlag("serve-dir", f.Lookup("dir"))
	_ = serveViper.BindPFlag("host", f.Lookup("host"))
	_ = serveViper.BindPFlag("port", f.Lookup("port"))
	_ = serveViper.BindPFlag("log-level", f.Lookup("log-level"))
	_ = serveViper.BindPFlag("log-format", f.Lookup("log-format"))
	serveViper.SetDefault("host", "127.0.0.1")

	rootCmd.AddCommand(serveCmd)
}
