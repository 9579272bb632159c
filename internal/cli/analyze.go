package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/mark3labs/openapi-mcp/internal/tools"
)

// AnalyzeConfig captures the analyze command's inputs after merging defaults
// and CLI overrides.
type AnalyzeConfig struct {
	URL       string
	AuthToken string
	Query     string
	Limit     int
	Timeout   time.Duration
}

func defaultAnalyzeConfig() AnalyzeConfig {
	return AnalyzeConfig{Limit: 10, Timeout: 30 * time.Second}
}

func newAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze <url>",
		Short: "Fetch and summarize an OpenAPI/Swagger spec (or the docs page hiding one)",
		Example: strings.TrimSpace(`  openapi-mcp analyze https://petstore3.swagger.io/api/v3/openapi.json
  openapi-mcp analyze https://api.example.com/docs --query "create user" --limit 5
  openapi-mcp analyze https://internal.example.com/swagger.json --token $API_TOKEN`),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveAnalyzeConfig(cmd.Flags())
			if err != nil {
				return err
			}
			cfg.URL = args[0]

			logger, err := loggerFor(cmd)
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			svc := tools.NewService(tools.Config{FetchTimeout: cfg.Timeout}, logger)
			res := svc.Analyze(cmd.Context(), tools.AnalyzeRequest{
				URL:       cfg.URL,
				AuthToken: cfg.AuthToken,
				Query:     cfg.Query,
				Limit:     cfg.Limit,
			})
			return printResult(cmd, res, res.Success, res.Error)
		},
	}

	flags := cmd.Flags()
	flags.String("token", "", "Bearer token for auth-protected spec endpoints")
	flags.String("query", "", "Rank endpoints against this free-text query")
	flags.Int("limit", 10, "Maximum endpoints to include (clamped to 1..50)")
	flags.Duration("timeout", 30*time.Second, "Timeout for the primary spec fetch")

	return cmd
}

func resolveAnalyzeConfig(flags *pflag.FlagSet) (*AnalyzeConfig, error) {
	cfg := defaultAnalyzeConfig()
	var err error
	if cfg.AuthToken, err = flags.GetString("token"); err != nil {
		return nil, err
	}
	if cfg.Query, err = flags.GetString("query"); err != nil {
		return nil, err
	}
	if cfg.Limit, err = flags.GetInt("limit"); err != nil {
		return nil, err
	}
	if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// printResult renders an operation result as YAML on stdout. Failed
// operations exit non-zero after printing the classified error.
func printResult(cmd *cobra.Command, result any, success bool, opErr *tools.OperationError) error {
	out, err := yaml.Marshal(result)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), string(out))
	if !success && opErr != nil {
		return fmt.Errorf("%s: %s", opErr.Kind, opErr.Message)
	}
	return nil
}
