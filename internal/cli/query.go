package cli

import (
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/mark3labs/openapi-mcp/internal/tools"
)

// QueryConfig captures inputs shared by the search, endpoints and info
// commands, which all operate on a configured spec URL.
type QueryConfig struct {
	SpecURL   string
	AuthToken string
	Method    string
	Tag       string
	Limit     int
	Timeout   time.Duration
	Descs     bool
	Params    bool
}

func defaultQueryConfig() QueryConfig {
	return QueryConfig{Limit: 10, Timeout: 30 * time.Second}
}

func addQueryFlags(flags *pflag.FlagSet) {
	flags.String("spec-url", "", "URL of the spec (or its documentation page)")
	flags.String("token", "", "Bearer token for auth-protected spec endpoints")
	flags.String("method", "", "Only endpoints with this HTTP method")
	flags.String("tag", "", "Only endpoints whose tags contain this substring")
	flags.Int("limit", 10, "Maximum results (clamped to 1..50)")
	flags.Duration("timeout", 30*time.Second, "Timeout for the spec fetch")
	flags.Bool("descriptions", false, "Include endpoint descriptions in output")
	flags.Bool("parameters", false, "Include endpoint parameters in output")
}

func resolveQueryConfig(flags *pflag.FlagSet) (*QueryConfig, error) {
	cfg := defaultQueryConfig()
	var err error
	if cfg.SpecURL, err = flags.GetString("spec-url"); err != nil {
		return nil, err
	}
	if cfg.AuthToken, err = flags.GetString("token"); err != nil {
		return nil, err
	}
	if cfg.Method, err = flags.GetString("method"); err != nil {
		return nil, err
	}
	if cfg.Tag, err = flags.GetString("tag"); err != nil {
		return nil, err
	}
	if cfg.Limit, err = flags.GetInt("limit"); err != nil {
		return nil, err
	}
	if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
		return nil, err
	}
	if cfg.Descs, err = flags.GetBool("descriptions"); err != nil {
		return nil, err
	}
	if cfg.Params, err = flags.GetBool("parameters"); err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.SpecURL) == "" {
		return nil, newUsageError("--spec-url is required")
	}
	return &cfg, nil
}

func serviceFor(cmd *cobra.Command, cfg *QueryConfig) (*tools.Service, error) {
	logger, err := loggerFor(cmd)
	if err != nil {
		return nil, err
	}
	return tools.NewService(tools.Config{
		SpecURL:      cfg.SpecURL,
		AuthToken:    cfg.AuthToken,
		FetchTimeout: cfg.Timeout,
	}, logger), nil
}

func newSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Rank a spec's endpoints against a free-text query",
		Example: strings.TrimSpace(`  openapi-mcp search "create user" --spec-url https://petstore3.swagger.io/api/v3/openapi.json
  openapi-mcp search pets --spec-url https://api.example.com/docs --method get --limit 5`),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveQueryConfig(cmd.Flags())
			if err != nil {
				return err
			}
			svc, err := serviceFor(cmd, cfg)
			if err != nil {
				return err
			}
			res := svc.Search(cmd.Context(), tools.SearchRequest{
				Query:  args[0],
				Limit:  cfg.Limit,
				Method: cfg.Method,
				Tag:    cfg.Tag,
				View:   tools.EndpointView{IncludeDescriptions: cfg.Descs, IncludeParameters: cfg.Params},
			})
			return printResult(cmd, res, res.Success, res.Error)
		},
	}
	addQueryFlags(cmd.Flags())
	return cmd
}

func newEndpointsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "endpoints",
		Short: "List a spec's endpoints, optionally filtered by method or tag",
		Example: strings.TrimSpace(`  openapi-mcp endpoints --spec-url https://petstore3.swagger.io/api/v3/openapi.json
  openapi-mcp endpoints --spec-url https://api.example.com/docs --tag store --parameters`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveQueryConfig(cmd.Flags())
			if err != nil {
				return err
			}
			svc, err := serviceFor(cmd, cfg)
			if err != nil {
				return err
			}
			res := svc.ListEndpoints(cmd.Context(), tools.ListRequest{
				Method: cfg.Method,
				Tag:    cfg.Tag,
				View:   tools.EndpointView{IncludeDescriptions: cfg.Descs, IncludeParameters: cfg.Params},
			})
			return printResult(cmd, res, res.Success, res.Error)
		},
	}
	addQueryFlags(cmd.Flags())
	return cmd
}

func newInfoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info",
		Short: "Summarize a spec: title, version, tags, security schemes",
		Example: strings.TrimSpace(`  openapi-mcp info --spec-url https://petstore3.swagger.io/api/v3/openapi.json`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveQueryConfig(cmd.Flags())
			if err != nil {
				return err
			}
			svc, err := serviceFor(cmd, cfg)
			if err != nil {
				return err
			}
			res := svc.Info(cmd.Context())
			return printResult(cmd, res, res.Success, res.Error)
		},
	}
	addQueryFlags(cmd.Flags())
	return cmd
}
