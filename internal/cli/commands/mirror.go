package commands

import (
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/shadowbox/internal/infrastructure/server"
)

// MirrorOptions holds options for the mirror command.
type MirrorOptions struct {
	Dir  string
	Host string
	Port string
}

// NewMirrorCommand creates the mirror command.
func NewMirrorCommand() *cobra.Command {
	opts := &MirrorOptions{}
	cmd := &cobra.Command{
		Use:   "mirror",
		Short: "Serve the local artifact directory over HTTP",
		Long: `Serve the artifact cache (or the offline directory, when one is configured)
in repository layout. Point SHADOWBOX_ARTIFACT_REPOSITORY on another machine
at http://<host>:<port>/repo to use it.

Stops on SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := RuntimeFrom(cmd.Context())
			if err != nil {
				return err
			}
			if !rt.Config.Logging.Development {
				gin.SetMode(gin.ReleaseMode)
			}

			cfg := rt.Config.Mirror
			if opts.Host != "" {
				cfg.Host = opts.Host
			}
			if opts.Port != "" {
				cfg.Port = opts.Port
			}

			srv := server.New(cfg, mirrorDir(rt, opts), rt.Catalog,
				server.WithMetrics(rt.Metrics),
				server.WithTracer(rt.Tracer),
				server.WithLogger(rt.Logger.Named("mirror")))
			return srv.Run(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&opts.Dir, "dir", "", "Directory to serve (default: offline dir, else the artifact cache)")
	cmd.Flags().StringVar(&opts.Host, "host", "", "Listen host (default: SHADOWBOX_MIRROR_HOST)")
	cmd.Flags().StringVar(&opts.Port, "port", "", "Listen port (default: SHADOWBOX_MIRROR_PORT)")
	return cmd
}

func mirrorDir(rt *Runtime, opts *MirrorOptions) string {
	switch {
	case opts.Dir != "":
		return opts.Dir
	case rt.Config.Artifact.OfflineDir != "":
		return rt.Config.Artifact.OfflineDir
	default:
		return rt.Config.Artifact.CacheDir
	}
}
