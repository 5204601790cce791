package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var audioCmd = &cobra.Command{
	Use:   "audio",
	Short: "Inspect recordings stored in the audio vault (server side)",
}

var audioListCmd = &cobra.Command{
	Use:   "list",
	Short: "List a user's stored recordings",
	RunE: func(cmd *cobra.Command, args []string) error {
		email, _ := cmd.Flags().GetString("user")

		a, err := newServer(cmd.Context(), "audio list", false)
		if err != nil {
			return err
		}
		defer a.Close()

		uploads, err := a.ListAudio(email)
		if err != nil {
			return err
		}
		if len(uploads) == 0 {
			fmt.Println("No recordings.")
			return nil
		}
		for _, u := range uploads {
			appt := u.AppointmentID
			if appt == "" {
				appt = "-"
			}
			fmt.Printf("%s  %s  %-12s %8d  %s\n", u.ID, u.CreatedAt.Local().Format("2006-01-02 15:04"), u.MimeType, u.Size, appt)
		}
		return nil
	},
}

var audioExportCmd = &cobra.Command{
	Use:   "export ID OUTFILE",
	Short: "Decrypt a stored recording to a file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		email, _ := cmd.Flags().GetString("user")

		a, err := newServer(cmd.Context(), "audio export", false)
		if err != nil {
			return err
		}
		defer a.Close()

		passphrase, err := readSecret("Audio encryption passphrase")
		if err != nil {
			return err
		}

		out, err := os.OpenFile(args[1], os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0600)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		if err := a.ExportAudio(email, args[0], passphrase, out); err != nil {
			out.Close()
			os.Remove(args[1])
			return err
		}
		if err := out.Close(); err != nil {
			return fmt.Errorf("closing output file: %w", err)
		}
		fmt.Printf("Exported %s to %s\n", args[0], args[1])
		return nil
	},
}

func init() {
	audioCmd.AddCommand(audioListCmd)
	audioCmd.AddCommand(audioExportCmd)
	for _, c := range []*cobra.Command{audioListCmd, audioExportCmd} {
		c.Flags().String("user", "", "Email of the account")
		c.MarkFlagRequired("user")
	}
}
