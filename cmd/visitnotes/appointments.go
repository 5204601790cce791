package main

import (
	"fmt"

	"visitnotes/internal/remote"

	"github.com/spf13/cobra"
)

var appointmentsCmd = &cobra.Command{
	Use:     "appointments",
	Aliases: []string{"appt"},
	Short:   "Manage appointments",
}

var appointmentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List appointments",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newClient("appointments list")
		if err != nil {
			return err
		}
		defer a.Close()

		appts, err := a.ListAppointments(cmd.Context())
		if err != nil {
			return err
		}
		if len(appts) == 0 {
			fmt.Println("No appointments.")
			return nil
		}
		for _, appt := range appts {
			fmt.Printf("%s  %s  %-20s  %s\n", appt.ID, appt.Date.Format("2006-01-02 15:04"), appt.Doctor, appt.Reason)
		}
		return nil
	},
}

var appointmentsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add an appointment",
	RunE: func(cmd *cobra.Command, args []string) error {
		req := remote.AppointmentRequest{}
		req.Doctor, _ = cmd.Flags().GetString("doctor")
		req.Date, _ = cmd.Flags().GetString("date")
		req.Reason, _ = cmd.Flags().GetString("reason")
		req.Goal, _ = cmd.Flags().GetString("goal")
		req.Symptoms, _ = cmd.Flags().GetString("symptoms")

		a, err := newClient("appointments add")
		if err != nil {
			return err
		}
		defer a.Close()

		appt, err := a.CreateAppointment(cmd.Context(), req)
		if err != nil {
			return err
		}
		fmt.Printf("Created appointment %s\n", appt.ID)
		return nil
	},
}

func init() {
	appointmentsCmd.AddCommand(appointmentsListCmd)
	appointmentsCmd.AddCommand(appointmentsAddCmd)

	f := appointmentsAddCmd.Flags()
	f.String("doctor", "", "Doctor's name")
	f.String("date", "", "Date, e.g. 2024-02-01 or 2024-02-01T09:30")
	f.String("reason", "", "Reason for the visit")
	f.String("goal", "", "What you want out of the visit")
	f.String("symptoms", "", "Current symptoms")
	appointmentsAddCmd.MarkFlagRequired("doctor")
	appointmentsAddCmd.MarkFlagRequired("date")
}
