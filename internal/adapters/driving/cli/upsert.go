package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/revstore/internal/core/domain"
	"github.com/custodia-labs/revstore/internal/core/ports/driving"
)

var upsertCmd = &cobra.Command{
	Use:   "upsert [file|-]",
	Short: "Create or update a resource",
	Long: `Reads a JSON resource from a file, or from stdin when the argument is "-",
and saves it as the resource's new current revision.

With --if-match the write only succeeds if the stored revision is still at
the given version.`,
	Args: cobra.ExactArgs(1),
	RunE: runUpsert,
}

var (
	upsertIfMatch string
	upsertClaims  []string
)

func init() {
	upsertCmd.Flags().StringVar(&upsertIfMatch, "if-match", "", `Expected current version, e.g. W/"3"`)
	upsertCmd.Flags().StringSliceVar(&upsertClaims, "claim", nil, "Claim of the writer as name=value (repeatable)")
	rootCmd.AddCommand(upsertCmd)
}

func runUpsert(cmd *cobra.Command, args []string) error {
	if upsertService == nil {
		return errNotConfigured
	}

	data, err := readInput(cmd, args[0])
	if err != nil {
		return err
	}

	resource, err := domain.ParseResource(data)
	if err != nil {
		return fmt.Errorf("failed to parse resource: %w", err)
	}

	req := driving.UpsertRequest{Resource: resource}
	if upsertIfMatch != "" {
		if req.ETag, err = domain.ParseWeakETag(upsertIfMatch); err != nil {
			return err
		}
	}

	claims, err := parseClaims(upsertClaims)
	if err != nil {
		return err
	}
	ctx := withRequest(cmd.Context(), resource, claims)

	resp, err := upsertService.Upsert(ctx, req)
	if err != nil {
		return describeError(err)
	}

	printOutcome(cmd, resp)
	return nil
}

func printOutcome(cmd *cobra.Command, resp *driving.UpsertResponse) {
	r := resp.Outcome.Resource
	kind := "Created"
	if resp.Outcome.Kind == domain.OutcomeUpdated {
		kind = "Updated"
	}
	cmd.Printf("%s %s (version %s, ETag %s)\n", kind, r.Key(), r.VersionID, domain.WeakETagFromVersion(r.VersionID))

	if resp.NotificationError != nil {
		cmd.PrintErrf("Warning: change notification failed: %v\n", resp.NotificationError)
	}
}

// withRequest records the caller in ctx for the revision's request metadata.
func withRequest(ctx context.Context, r *domain.Resource, claims []domain.Claim) context.Context {
	uri := r.Type
	if r.ID != "" {
		uri += "/" + r.ID
	}
	return domain.WithRequestContext(ctx, domain.RequestContext{Method: "PUT", URI: uri, Claims: claims})
}

func parseClaims(raw []string) ([]domain.Claim, error) {
	claims := make([]domain.Claim, 0, len(raw))
	for _, c := range raw {
		name, value, ok := strings.Cut(c, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid claim %q, expected name=value", c)
		}
		claims = append(claims, domain.Claim{Name: name, Value: value})
	}
	return claims, nil
}

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}
