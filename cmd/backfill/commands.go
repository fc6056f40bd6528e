package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

type opener func() (*app, error)

func newRunCmd(open opener) *cobra.Command {
	var (
		dryRun       bool
		snapshotPath string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Create records for sources that have none",
		Long: `Lists every object under the books prefix, derives title, author,
genre and publication year from the filename, and stores the record unless
one already exists for that filename.`,
		Example: `  # Preview what would be created
  backfill run --dry-run

  # Snapshot the catalog first, then backfill
  backfill run --snapshot before.parquet`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := open()
			if err != nil {
				return err
			}
			defer a.close() //nolint:errcheck // best effort on exit

			if snapshotPath != "" && !dryRun {
				if _, err := a.runner.Snapshot(cmd.Context(), snapshotPath); err != nil {
					return err
				}
			}

			report, err := a.runner.Run(cmd.Context(), dryRun)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if dryRun {
				for _, b := range report.Planned {
					fmt.Fprintf(out, "%s\t%s\t%s\t%s\t%d\n", b.Filename, b.Title, b.Author, b.Genre, b.PublicationYear)
				}
				fmt.Fprintf(out, "%d records would be considered\n", len(report.Planned))
				return nil
			}
			fmt.Fprintf(out, "listed %d, created %d, skipped %d, failed %d\n",
				report.Listed, report.Created, report.Skipped, report.Failed)
			if report.Failed > 0 {
				return errors.Join(report.Errors...)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "Print derived records without writing")
	cmd.Flags().StringVar(&snapshotPath, "snapshot", "", "Write a parquet snapshot before backfilling")

	return cmd
}

func newVerifyCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Report sources without records and records without sources",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := open()
			if err != nil {
				return err
			}
			defer a.close() //nolint:errcheck // best effort on exit

			drift, err := a.runner.Verify(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, name := range drift.Missing {
				fmt.Fprintf(out, "missing\t%s\n", name)
			}
			for _, name := range drift.Extra {
				fmt.Fprintf(out, "extra\t%s\n", name)
			}
			if !drift.InSync() {
				return fmt.Errorf("%d missing, %d extra", len(drift.Missing), len(drift.Extra))
			}
			fmt.Fprintln(out, "store and bucket are in sync")
			return nil
		},
	}
}

func newSnapshotCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "snapshot <file.parquet>",
		Short: "Write every record to a parquet file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := open()
			if err != nil {
				return err
			}
			defer a.close() //nolint:errcheck // best effort on exit

			n, err := a.runner.Snapshot(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d records to %s\n", n, args[0])
			return nil
		},
	}
}

func newRestoreCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <file.parquet>",
		Short: "Write snapshot records back to the store",
		Long:  `Records are written by ID and overwrite any stored record with the same ID.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := open()
			if err != nil {
				return err
			}
			defer a.close() //nolint:errcheck // best effort on exit

			n, err := a.runner.Restore(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "restored %d records from %s\n", n, args[0])
			return nil
		},
	}
}
