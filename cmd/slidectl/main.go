package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/lshigami/Pathoscore/internal/client"
	"github.com/spf13/cobra"
)

var serverURL string

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "slidectl: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "slidectl",
		Short: "Slide scoring workstation CLI",
		Long: `slidectl uploads whole-slide TIFF images to the scoring server through the
sequential upload queue, applies score corrections and exports the history.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVarP(&serverURL, "server", "s", "http://localhost:8000", "Scoring server base URL")
	cmd.AddCommand(
		newUploadCmd(),
		newSetScoreCmd(),
		newExportCmd(),
	)
	return cmd
}

func newUploadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "upload <files...>",
		Short: "Upload slide images one at a time, in order",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			api := client.NewAPI(serverURL)

			queue := client.NewQueue(api)
			if err := queue.Start(ctx); err != nil {
				return err
			}
			defer queue.Close()

			for _, path := range args {
				info, err := os.Stat(path)
				if err != nil {
					return err
				}
				p := path
				if _, err := queue.Enqueue(info.Name(), info.Size(), func() (io.ReadCloser, error) {
					return os.Open(p)
				}); err != nil {
					fmt.Fprintf(os.Stderr, "skipping %s: %v\n", path, err)
				}
			}

			for !queue.Idle() {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(100 * time.Millisecond):
				}
			}

			failures := 0
			for _, item := range queue.Items() {
				switch item.Status {
				case client.StatusCompleted:
					fmt.Printf("%-40s serial=%s total=%.2f db_id=%d\n",
						item.Filename, item.Result.SerialNumber, item.Result.Scores["Total"], item.Result.DBID)
				case client.StatusError:
					failures++
					fmt.Printf("%-40s FAILED: %s\n", item.Filename, item.Err)
				}
			}
			if failures > 0 {
				return fmt.Errorf("%d upload(s) failed", failures)
			}
			return nil
		},
	}
}

func newSetScoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-score <db-id> <metric>=<value>...",
		Short: "Correct one or more metrics on a stored record",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			api := client.NewAPI(serverURL)

			dbID, err := strconv.ParseUint(args[0], 10, 32)
			if err != nil {
				return fmt.Errorf("invalid record id %q", args[0])
			}

			records, err := api.ListScores(ctx)
			if err != nil {
				return err
			}
			var record *client.ScoreRecord
			for i := range records {
				if records[i].DBID == uint(dbID) {
					record = &records[i]
					break
				}
			}
			if record == nil {
				return fmt.Errorf("record %d not found on server", dbID)
			}

			editor := client.NewEditor(api)
			itemID := "record-" + args[0]
			editor.Track(itemID, record)

			for _, pair := range args[1:] {
				name, valueStr, ok := strings.Cut(pair, "=")
				if !ok {
					return fmt.Errorf("expected <metric>=<value>, got %q", pair)
				}
				value, err := strconv.ParseFloat(valueStr, 64)
				if err != nil {
					return fmt.Errorf("invalid value in %q", pair)
				}
				if err := editor.SetScore(itemID, name, value); err != nil {
					return err
				}
			}

			updated := editor.Record(itemID)
			fmt.Printf("%s total=%.2f (saving...)\n", record.Filename, updated.Scores["Total"])

			// Give the background save a tick to start before polling it down.
			time.Sleep(50 * time.Millisecond)
			for editor.Saving(itemID) {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(50 * time.Millisecond):
				}
			}
			fmt.Println("saved")
			return nil
		},
	}
}

func newExportCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Download the full score history as CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := client.NewAPI(serverURL).ExportCSV(cmd.Context())
			if err != nil {
				return err
			}
			if output == "" {
				_, err = os.Stdout.Write(data)
				return err
			}
			return os.WriteFile(output, data, 0o644)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write CSV to a file instead of stdout")
	return cmd
}
