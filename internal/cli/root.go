// Package cli implements the cvopt command, a terminal client for the
// resume optimizer API.
package cli

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"cv-optimizer/internal/client"
)

// App is the state shared by every subcommand.
type App struct {
	API  *client.API
	Boot *client.Bootstrapper
}

type appKeyType struct{}

var appKey = appKeyType{}

// WithApp attaches a prebuilt App, skipping construction from flags.
func WithApp(ctx context.Context, app *App) context.Context {
	return context.WithValue(ctx, appKey, app)
}

func appFromContext(ctx context.Context) *App {
	if app, ok := ctx.Value(appKey).(*App); ok {
		return app
	}
	panic("cli app not found in context")
}

// NewRootCommand builds the cvopt command tree. Flags can also be set as
// CVOPT_SERVER, CVOPT_CACHE_FILE and CVOPT_TIMEOUT.
func NewRootCommand() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("cvopt")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	root := &cobra.Command{
		Use:   "cvopt",
		Short: "Tailor a resume to a job description from the terminal",
		Long: `cvopt drives the resume optimizer: upload a PDF resume, analyze it
against a job description, answer the follow-up questions and download
the optimized resume as PDF or DOCX.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if _, ok := cmd.Context().Value(appKey).(*App); ok {
				return nil
			}
			app, err := newApp(v)
			if err != nil {
				return err
			}
			cmd.SetContext(WithApp(cmd.Context(), app))
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.String("server", "http://localhost:8080/api/v1", "API base URL")
	flags.String("cache-file", "", "session id cache file (default: user config dir)")
	flags.Duration("timeout", 150*time.Second, "per-request timeout")
	_ = v.BindPFlags(flags)

	root.AddCommand(
		newSessionCmd(),
		newStatusCmd(),
		newDeleteCmd(),
		newUploadCmd(),
		newAnalyzeCmd(),
		newQuestionsCmd(),
		newAnswerCmd(),
		newSkipCmd(),
		newInterviewCmd(),
		newGenerateCmd(),
		newDownloadCmd(),
		newRunCmd(),
	)
	return root
}

// Execute runs the command tree with ctx.
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}

func newApp(v *viper.Viper) (*App, error) {
	var cache client.IDCache
	if path := strings.TrimSpace(v.GetString("cache-file")); path != "" {
		cache = &client.FileCache{Path: path}
	} else {
		fc, err := client.DefaultFileCache()
		if err != nil {
			return nil, err
		}
		cache = fc
	}
	api := client.NewAPI(v.GetString("server"), &http.Client{Timeout: v.GetDuration("timeout")})
	return &App{API: api, Boot: client.NewBootstrapper(api, cache)}, nil
}
