package main

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strconv"
	"text/tabwriter"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/tactica/internal"
	pkgconfig "github.com/starford/tactica/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	opts := []internal.Option{
		internal.WithConfig(cfg),
	}

	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}

	return nil
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.RunMCP(ctx, internal.WithConfig(cfg), internal.WithLogOutput(os.Stderr)); err != nil {
		return fmt.Errorf("mcp run error: %w", err)
	}
	return nil
}

func listSessions(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	svc, gw, err := internal.OpenService(cfg, internal.NewLogger(cfg, os.Stderr), nil)
	if err != nil {
		return err
	}
	defer gw.Close()

	items, err := svc.ListSessions(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tVIDEO\tCLIPS\tANNOTATIONS\tUPDATED")
	for _, s := range items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\n",
			s.ID, s.Name, s.VideoFileName, s.ClipCount, s.AnnotationCount, s.UpdatedAt.Format("2006-01-02 15:04"))
	}
	return tw.Flush()
}

func createSession(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	duration, err := parseFloat(cmd.String("duration"))
	if err != nil {
		return fmt.Errorf("duration: %w", err)
	}
	svc, gw, err := internal.OpenService(cfg, internal.NewLogger(cfg, os.Stderr), nil)
	if err != nil {
		return err
	}
	defer gw.Close()

	sess, err := svc.CreateSession(ctx, cmd.String("name"))
	if err != nil {
		return err
	}
	if video := cmd.String("video"); video != "" || duration > 0 {
		if _, err := svc.SetVideo(ctx, sess.ID, video, duration); err != nil {
			return err
		}
	}
	fmt.Println(sess.ID)
	return nil
}

func deleteSession(ctx context.Context, cmd *cli.Command) error {
	id := cmd.Args().First()
	if id == "" {
		return fmt.Errorf("session id is required")
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	svc, gw, err := internal.OpenService(cfg, internal.NewLogger(cfg, os.Stderr), nil)
	if err != nil {
		return err
	}
	defer gw.Close()
	return svc.DeleteSession(ctx, id)
}

func render(ctx context.Context, cmd *cli.Command) error {
	id := cmd.Args().First()
	if id == "" {
		return fmt.Errorf("session id is required")
	}
	var ro internal.RenderOptions
	var err error
	for name, dst := range map[string]*float64{"from": &ro.From, "to": &ro.To, "fps": &ro.FPS, "rate": &ro.Rate} {
		if *dst, err = parseFloat(cmd.String(name)); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := internal.NewLogger(cfg, os.Stderr)
	gw, err := internal.OpenGateway(&cfg.Storage)
	if err != nil {
		return err
	}
	defer gw.Close()

	n, err := internal.Render(ctx, gw, cfg.Editor.Settings(), logger, id, ro, os.Stdout)
	if err != nil {
		return err
	}
	logger.Info("render finished", slog.String("id", id), slog.Int("frames", n))
	return nil
}

// parseFloat reads a float flag; empty means zero, NaN and infinities are
// rejected.
func parseFloat(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%q is not a finite number", s)
	}
	return v, nil
}

func main() {
	cmd := &cli.Command{
		Name:   "tactica",
		Usage:  "Match analysis timelines: clips, animated annotations and pause scenes over video",
		Action: serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API with server-sent events",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve MCP tools over stdio",
				Action: serveMCP,
			},
			{
				Name:  "sessions",
				Usage: "Manage analysis sessions",
				Commands: []*cli.Command{
					{
						Name:   "list",
						Usage:  "List sessions",
						Action: listSessions,
					},
					{
						Name:   "create",
						Usage:  "Create a session",
						Action: createSession,
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "name", Usage: "Session name", Required: true},
							&cli.StringFlag{Name: "video", Usage: "Video file name"},
							&cli.StringFlag{Name: "duration", Usage: "Video duration in seconds"},
						},
					},
					{
						Name:      "delete",
						Usage:     "Delete a session",
						ArgsUsage: "<id>",
						Action:    deleteSession,
					},
				},
			},
			{
				Name:      "render",
				Usage:     "Play a session headless and print one JSON line per frame",
				ArgsUsage: "<id>",
				Action:    render,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "from", Usage: "Start time in seconds", Value: "0"},
					&cli.StringFlag{Name: "to", Usage: "Stop time in seconds (default: end of video)"},
					&cli.StringFlag{Name: "fps", Usage: "Frames per second", Value: "30"},
					&cli.StringFlag{Name: "rate", Usage: "Playback rate", Value: "1"},
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
