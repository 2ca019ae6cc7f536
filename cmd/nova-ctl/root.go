package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	log "log/slog"

	"nova/internal/ipc"
	"nova/internal/serverapi"
)

var logLevelMap = map[string]log.Level{
	"debug": log.LevelDebug,
	"info":  log.LevelInfo,
	"warn":  log.LevelWarn,
	"error": log.LevelError,
}

type globals struct {
	server   string
	socket   string
	envFile  string
	logLevel string
}

func (g *globals) api() *serverapi.Client {
	return serverapi.New(g.server, serverapi.WithUserAgent("nova-ctl/1.0"))
}

func newRootCmd() *cobra.Command {
	g := &globals{}

	cmd := &cobra.Command{
		Use:           "nova-ctl",
		Short:         "Control the Nova daemon and query the Nova server",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			log.SetDefault(log.New(tint.NewHandler(cmd.ErrOrStderr(), &tint.Options{
				Level: logLevelMap[g.logLevel],
			})))
			godotenv.Load(g.envFile)
			if g.server == "" {
				g.server = os.Getenv("NOVA_SERVER_URL")
			}
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&g.server, "server", "s", "", "Nova server URL (default $NOVA_SERVER_URL or "+serverapi.DefaultURL+")")
	pf.StringVar(&g.socket, "socket", ipc.DefaultSocket, "Daemon control socket")
	pf.StringVarP(&g.envFile, "env", "e", ".env", "Env file path")
	pf.StringVarP(&g.logLevel, "log", "l", "warn", "Log level")

	cmd.AddCommand(
		newSocketCmd(g, ipc.CmdTrigger, "Make the daemon take the next utterance without the wake word"),
		newSocketCmd(g, ipc.CmdShutdown, "Stop the daemon"),
		newStatusCmd(g),
		newEventsCmd(g),
		newAddEventCmd(g),
		newTailCmd(g),
		newSpotifyLoginCmd(),
	)
	return cmd
}
