package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"

	"github.com/JakeFAU/statusinfo/internal/api"
)

// Output formats accepted by --output.
const (
	outputTable = "table"
	outputJSON  = "json"
	outputYAML  = "yaml"
)

func validOutput(format string) error {
	switch format {
	case outputTable, outputJSON, outputYAML:
		return nil
	default:
		return fmt.Errorf("unknown output format %q (want table, json or yaml)", format)
	}
}

// renderSnapshot writes snap to w in the requested format.
func renderSnapshot(w io.Writer, snap api.SnapshotResponse, format string) error {
	switch format {
	case outputJSON:
		out, err := json.MarshalIndent(snap, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal json: %w", err)
		}
		_, err = fmt.Fprintln(w, string(out))
		return err
	case outputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(snap); err != nil {
			return fmt.Errorf("marshal yaml: %w", err)
		}
		return enc.Close()
	case outputTable:
		return renderTable(w, snap)
	default:
		return validOutput(format)
	}
}

func renderTable(w io.Writer, snap api.SnapshotResponse) error {
	if len(snap.Threads) == 0 {
		_, err := fmt.Fprintf(w, "No operations in progress (listeners: %d)\n", snap.Listeners)
		return err
	}

	table := tablewriter.NewWriter(w)
	table.Header("Thread", "Operation", "ID", "Steps", "Listeners")
	for _, th := range snap.Threads {
		thread := th.Name + "#" + strconv.FormatUint(th.ID, 10)
		for _, op := range th.Operations {
			if err := table.Append(
				thread,
				op.Name,
				op.ID,
				formatSteps(op),
				strconv.Itoa(op.DedicatedListeners),
			); err != nil {
				return fmt.Errorf("append row: %w", err)
			}
		}
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("render table: %w", err)
	}
	_, err := fmt.Fprintf(w, "\nOperations: %d  Listeners: %d\n", snap.Operations, snap.Listeners)
	return err
}

func formatSteps(op api.OperationResponse) string {
	if op.MaxSteps == nil {
		return strconv.Itoa(op.CurrentSteps)
	}
	return fmt.Sprintf("%d/%d", op.CurrentSteps, *op.MaxSteps)
}
