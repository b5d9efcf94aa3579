package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ca-srg/chatbridge/internal/messaging"
	"github.com/ca-srg/chatbridge/internal/metrics"
	"github.com/ca-srg/chatbridge/internal/types"
)

var validatePlatform string

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate platform credentials",
	Long: `
Validate the configured credentials by calling each platform's test
endpoint. With --platform only that platform is checked; without it all
platforms are checked concurrently and a combined report is printed.

Examples:
  chatbridge validate
  chatbridge validate --platform slack
  chatbridge validate --platform discord
`,
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().StringVarP(&validatePlatform, "platform", "p", "", "Platform to validate: slack or discord (default: all)")
}

type platformValidation struct {
	platform string
	envelope messaging.Envelope
}

// validateAll checks every platform concurrently and folds the results
// into one report keyed by platform name, with a top-level valid flag.
func validateAll(ctx context.Context, dispatcher *messaging.Dispatcher) messaging.Envelope {
	platforms := []string{types.PlatformSlack, types.PlatformDiscord}
	resultCh := make(chan platformValidation, len(platforms))

	group, groupCtx := errgroup.WithContext(ctx)
	for _, platform := range platforms {
		group.Go(func() error {
			resultCh <- platformValidation{
				platform: platform,
				envelope: dispatcher.Validate(groupCtx, &types.ValidateRequest{Platform: platform}),
			}
			return nil
		})
	}
	_ = group.Wait()
	close(resultCh)

	combined := messaging.Envelope{"valid": true}
	for result := range resultCh {
		combined[result.platform] = result.envelope
		if messaging.EnvelopeFailed(result.envelope) {
			combined["valid"] = false
		}
	}
	return combined
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := context.Background()
	dispatcher, err := newDispatcher(ctx, cfg)
	if err != nil {
		return err
	}

	metrics.RecordInvocation(metrics.ModeCLI, types.ToolValidate)

	if validatePlatform != "" {
		env := dispatcher.Validate(ctx, &types.ValidateRequest{Platform: validatePlatform})
		return emitEnvelope(cmd, types.ToolValidate, env)
	}
	return emitEnvelope(cmd, types.ToolValidate, validateAll(ctx, dispatcher))
}
