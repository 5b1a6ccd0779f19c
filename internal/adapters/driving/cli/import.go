package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"
	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/revstore/internal/core/domain"
	"github.com/custodia-labs/revstore/internal/core/ports/driving"
	"github.com/custodia-labs/revstore/internal/logger"
)

var importCmd = &cobra.Command{
	Use:   "import [file|-]",
	Short: "Upsert every resource in a YAML or JSON file",
	Long: `Reads a stream of resources separated by "---" (YAML) or a single JSON
resource, and upserts each one in order. Failed resources are reported and
skipped; the command fails if any resource failed.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

// importRate limits upserts per second. Zero means unlimited.
var importRate float64

func init() {
	importCmd.Flags().Float64Var(&importRate, "rate", 0, "Maximum upserts per second (0 = unlimited)")
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	if upsertService == nil {
		return errNotConfigured
	}
	if importRate < 0 {
		return fmt.Errorf("--rate must not be negative")
	}

	data, err := readInput(cmd, args[0])
	if err != nil {
		return err
	}

	resources, err := decodeResources(data)
	if err != nil {
		return err
	}

	limit := rate.Inf
	if importRate > 0 {
		limit = rate.Limit(importRate)
	}
	limiter := rate.NewLimiter(limit, 1)

	ctx := cmd.Context()
	var created, updated, failed int
	for i, r := range resources {
		if err := limiter.Wait(ctx); err != nil {
			return err
		}

		logger.Debug("Importing resource %d: %s", i+1, r.Key())
		resp, err := upsertService.Upsert(withRequest(ctx, r, nil), driving.UpsertRequest{Resource: r})
		if err != nil {
			failed++
			cmd.PrintErrf("  [%d] %s: %v\n", i+1, r.Key(), describeError(err))
			continue
		}
		if resp.Outcome.Kind == domain.OutcomeUpdated {
			updated++
		} else {
			created++
		}
		printOutcome(cmd, resp)
	}

	cmd.Printf("\nImported %d resources (%d created, %d updated, %d failed)\n",
		created+updated, created, updated, failed)
	if failed > 0 {
		return fmt.Errorf("%d of %d resources failed", failed, len(resources))
	}
	return nil
}

// decodeResources splits a multi-document YAML stream into resources. JSON
// is valid YAML, so JSON files decode the same way.
func decodeResources(data []byte) ([]*domain.Resource, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))

	var resources []*domain.Resource
	for n := 1; ; n++ {
		var body map[string]any
		err := dec.Decode(&body)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", n, err)
		}
		if body == nil {
			continue
		}

		// Round-trip through JSON so numbers and nested maps take the
		// same shapes as a parsed JSON resource.
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", n, err)
		}
		r, err := domain.ParseResource(raw)
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", n, err)
		}
		resources = append(resources, r)
	}

	if len(resources) == 0 {
		return nil, fmt.Errorf("%w: no resources found", domain.ErrInvalidInput)
	}
	return resources, nil
}
