package main

import (
	"fmt"
	"os"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ajitpratap0/objectpool/pkg/pool"
)

// seedResult is the JSON document printed by seed --json
type seedResult struct {
	SessionID string        `json:"session_id"`
	Kind      string        `json:"kind"`
	Created   int           `json:"created"`
	Skipped   int           `json:"skipped_entries"`
	Failed    int           `json:"failed_units"`
	Errors    []string      `json:"errors,omitempty"`
	Snapshot  pool.Snapshot `json:"snapshot"`
}

func newSeedCmd(v *viper.Viper) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Seed the configured pools and print the resulting snapshot",
		Long: `Start a session, seed every configured pool and print the debug snapshot.

Example:
  objectpool seed --config pools.yaml --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(v, cmd)
			if err != nil {
				return err
			}
			defer a.close()

			ctx := a.session.Context(cmd.Context())
			report, err := a.session.Begin(ctx)
			if err != nil {
				return err
			}
			snap := a.session.Registry().Snapshot()

			if !asJSON {
				fmt.Printf("Session %s (%s)\n", a.session.ID(), a.session.Kind())
				fmt.Printf("Created %d instances, skipped %d entries, %d units failed\n\n",
					report.Created, report.SkippedEntries, report.FailedUnits)
				fmt.Print(snap)
				return nil
			}

			result := seedResult{
				SessionID: a.session.ID(),
				Kind:      a.session.Kind().String(),
				Created:   report.Created,
				Skipped:   report.SkippedEntries,
				Failed:    report.FailedUnits,
				Snapshot:  snap,
			}
			for _, e := range report.Errors {
				result.Errors = append(result.Errors, e.Error())
			}

			data, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to encode snapshot: %w", err)
			}
			_, err = fmt.Fprintln(os.Stdout, string(data))
			return err
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the snapshot as JSON")
	return cmd
}
