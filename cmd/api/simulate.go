package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/Bjohan23/SDN-STAFF-sub000/internal/core/services"
)

func simulateCmd() *cobra.Command {
	var eventID, algorithm string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Dry-run an assignment algorithm for one event",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			id, err := uuid.Parse(eventID)
			if err != nil {
				return fmt.Errorf("invalid --event %q: %w", eventID, err)
			}

			alg, err := services.ParseAlgorithm(algorithm)
			if err != nil {
				return err
			}

			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}

			a, err := newApp(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer a.close()

			res, err := a.orch.Simulate(ctx, id, alg)
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}

			renderSimulation(cmd.OutOrStdout(), res)

			return nil
		},
	}

	cmd.Flags().StringVar(&eventID, "event", "", "event id")
	cmd.Flags().StringVar(&algorithm, "algorithm", string(services.AlgorithmMixed), "seleccion_directa, manual, automatica or mixto")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw result as JSON")
	_ = cmd.MarkFlagRequired("event")

	return cmd
}

func renderSimulation(out io.Writer, res *services.SimulationResult) {
	tw := table.NewWriter()
	tw.SetOutputMirror(out)
	tw.SetTitle(fmt.Sprintf("%s: %d/%d possible (%.2f%%), %d potential conflicts",
		res.Algorithm, res.Possible, res.Eligible, res.SuccessRate, res.PotentialConflicts))
	tw.AppendHeader(table.Row{"Request", "Company", "Stand", "Priority", "Match", "Reason"})

	for _, p := range res.Pairings {
		tw.AppendRow(table.Row{p.RequestID, p.CompanyID, p.StandCode, p.Priority, p.Score, ""})
	}

	for _, u := range res.Unmatched {
		tw.AppendRow(table.Row{u.RequestID, u.CompanyID, "-", "", "", u.Reason})
	}

	tw.Render()

	if res.Capacity != nil {
		ct := table.NewWriter()
		ct.SetOutputMirror(out)
		ct.SetTitle(fmt.Sprintf("coverage %.2f%% (%d/%d pending)", res.Capacity.Coverage, res.Capacity.Covered, res.Capacity.Pending))
		ct.AppendHeader(table.Row{"Zone", "Stands", "Available", "Demand"})
		for _, z := range res.Capacity.Zones {
			ct.AppendRow(table.Row{z.Zone, z.Stands, z.Available, z.Demand})
		}
		ct.Render()
	}
}
