package main

import (
	"encoding/json"
	"time"

	"github.com/homefix/calbook/libs/runtime"
	"github.com/homefix/calbook/services/booking-service/internal/capacity"
	"github.com/homefix/calbook/services/booking-service/internal/slots"
	"github.com/homefix/calbook/services/booking-service/internal/timeconv"
	"github.com/spf13/cobra"
)

func newSlotsCmd() *cobra.Command {
	var (
		slotType string
		today    string
		ics      bool
	)
	cmd := &cobra.Command{
		Use:   "slots",
		Short: "Print the open windows for a slot type",
		Example: `  booking-service slots --type 1
  booking-service slots --type 2.5 --today 2024-06-05 --ics`,
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := slots.ParseType(slotType)
			if err != nil {
				return err
			}
			cfg, err := loadConfig(envFiles(cmd))
			if err != nil {
				return err
			}
			logger := runtime.NewLoggerWithLevel(cfg.ServiceName, cfg.LogLevel)

			ctx, stop := runtime.ShutdownContext(logger)
			defer stop()

			cal, err := newCalendar(ctx, cfg, logger)
			if err != nil {
				return err
			}
			gen := slots.NewGenerator(capacity.NewChecker(cal), cfg.SlotCheckConcurrency)
			if today != "" {
				day, err := timeconv.ParseDate(today)
				if err != nil {
					return err
				}
				gen.Now = func() time.Time { return day }
			}

			open, err := gen.Available(ctx, t)
			if err != nil {
				return err
			}
			if ics {
				return slots.WriteICS(cmd.OutOrStdout(), t, open, gen.Now())
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(open)
		},
	}
	cmd.Flags().StringVar(&slotType, "type", "1", "slot type: 0.5, 1, 1.5, 2, 2.5, 3 or 3.5")
	cmd.Flags().StringVar(&today, "today", "", "pin today's date (YYYY-MM-DD, business zone)")
	cmd.Flags().BoolVar(&ics, "ics", false, "print an iCalendar feed instead of JSON")
	return cmd
}
