package main

import (
	"fmt"
	"strconv"
	"strings"

	"visitnotes/internal/model"

	"github.com/spf13/cobra"
)

var recordCmd = &cobra.Command{
	Use:   "record APPOINTMENT FILE",
	Short: "Transcribe and summarize a visit recording",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newClient("record")
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.Record(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		printAnalysis(res.Record)
		if !res.Save.Synced {
			fmt.Println("\nSaved on this device only; it will be uploaded on the next sync.")
		}
		return nil
	},
}

var analysesCmd = &cobra.Command{
	Use:   "analyses",
	Short: "View and manage visit analyses",
}

var analysesListCmd = &cobra.Command{
	Use:   "list APPOINTMENT",
	Short: "Sync and list an appointment's analyses",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		full, _ := cmd.Flags().GetBool("full")

		a, err := newClient("analyses list")
		if err != nil {
			return err
		}
		defer a.Close()

		recs := a.ListAnalyses(cmd.Context(), args[0])
		if len(recs) == 0 {
			fmt.Println("No analyses.")
			return nil
		}
		for i, rec := range recs {
			if full {
				if i > 0 {
					fmt.Println()
				}
				printAnalysis(rec)
				continue
			}
			fmt.Printf("#%-3d %s  %-12s %s\n", rec.ID, rec.Timestamp.Local().Format("2006-01-02 15:04"), rec.Source, firstLine(rec.Summary, 60))
		}
		return nil
	},
}

var analysesStatusCmd = &cobra.Command{
	Use:   "status APPOINTMENT",
	Short: "Show sync status of an appointment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newClient("analyses status")
		if err != nil {
			return err
		}
		defer a.Close()

		st := a.Status(cmd.Context(), args[0])
		lastSync := "never"
		if st.LastSync != nil {
			lastSync = st.LastSync.Local().Format("2006-01-02 15:04:05")
		}
		fmt.Printf("Local analyses:  %d\n", st.LocalCount)
		fmt.Printf("Unsynced:        %d\n", st.UnsyncedCount)
		fmt.Printf("Pending deletes: %d\n", st.PendingDeletes)
		fmt.Printf("Last sync:       %s\n", lastSync)
		fmt.Printf("Server:          %s\n", map[bool]string{true: "reachable", false: "unreachable"}[st.ServerReachable])
		return nil
	},
}

var analysesDeleteCmd = &cobra.Command{
	Use:   "delete APPOINTMENT ID",
	Short: "Delete one analysis",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.Atoi(args[1])
		if err != nil || id < 1 {
			return fmt.Errorf("invalid analysis id %q", args[1])
		}

		a, err := newClient("analyses delete")
		if err != nil {
			return err
		}
		defer a.Close()

		if a.DeleteAnalysis(cmd.Context(), args[0], id) {
			fmt.Printf("Deleted analysis #%d\n", id)
		} else {
			fmt.Printf("Deleted analysis #%d on this device; the server will be updated on the next sync.\n", id)
		}
		return nil
	},
}

var analysesClearCmd = &cobra.Command{
	Use:   "clear APPOINTMENT",
	Short: "Delete every analysis of an appointment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newClient("analyses clear")
		if err != nil {
			return err
		}
		defer a.Close()

		a.ClearAnalyses(cmd.Context(), args[0])
		fmt.Println("Cleared analyses")
		return nil
	},
}

func printAnalysis(rec model.AnalysisRecord) {
	fmt.Printf("Analysis #%d  (%s)\n\n", rec.ID, rec.Timestamp.Local().Format("2006-01-02 15:04"))
	fmt.Printf("Summary:\n  %s\n", rec.Summary)
	printList("Key points", rec.KeyPoints)
	printList("Questions", rec.Questions)
	printList("Action items", rec.ActionItems)
	if rec.Transcript != "" {
		fmt.Printf("\nTranscript:\n  %s\n", rec.Transcript)
	}
}

func printList(title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Printf("\n%s:\n", title)
	for _, item := range items {
		fmt.Printf("  - %s\n", item)
	}
}

func firstLine(s string, max int) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if r := []rune(s); len(r) > max {
		return string(r[:max-1]) + "…"
	}
	return s
}

func init() {
	analysesCmd.AddCommand(analysesListCmd)
	analysesListCmd.Flags().BoolP("full", "f", false, "Print every analysis in full")
	analysesCmd.AddCommand(analysesStatusCmd)
	analysesCmd.AddCommand(analysesDeleteCmd)
	analysesCmd.AddCommand(analysesClearCmd)
}
