package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"tend-cli/internal/model"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"
)

// writeJSON writes strict JSON output for scriptable commands. Payloads are
// wrapped in a {"data": ...} envelope so errors and hints can ride alongside
// later without breaking consumers.
func writeJSON(w io.Writer, v any, pretty bool) error {
	var b []byte
	var err error
	if pretty {
		b, err = json.MarshalIndent(v, "", "  ")
	} else {
		b, err = json.Marshal(v)
	}
	if err != nil {
		return err
	}
	b = append(b, '\n')
	_, err = w.Write(b)
	return err
}

func tableFormat(app *App) bool {
	return app.Format == "table"
}

func bold(s string) string {
	return color.New(color.Bold).Sprint(s)
}

func faint(s string) string {
	return color.New(color.Faint).Sprint(s)
}

func writeItemTable(cmd *cobra.Command, items []model.Item, lists []model.List) error {
	listNames := make(map[string]string, len(lists))
	for _, l := range lists {
		listNames[l.ID] = l.Name
	}

	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.MaxColWidth = 48
	tbl.AddRow(bold("ID"), bold("Title"), bold("Status"), bold("Priority"), bold("When"), bold("List"))
	for _, it := range items {
		tbl.AddRow(faint(it.ID), it.Title, string(it.Status), priorityCell(it), whenCell(it), listNames[it.ListID])
	}
	_, err := fmt.Fprintln(cmd.OutOrStdout(), tbl)
	return err
}

func writeListTable(cmd *cobra.Command, lists []model.List) error {
	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.AddRow(bold("ID"), bold("Name"), bold("Shared with"), bold("Default"))
	for _, l := range lists {
		def := ""
		if l.IsDefault {
			def = "yes"
		}
		tbl.AddRow(faint(l.ID), l.Name, strings.Join(l.SharedWith, ", "), def)
	}
	_, err := fmt.Fprintln(cmd.OutOrStdout(), tbl)
	return err
}

func priorityCell(it model.Item) string {
	if it.Type != model.TypeTask {
		return ""
	}
	switch it.Priority {
	case model.PriorityNow:
		return color.New(color.FgHiRed).Sprint("now")
	case model.PriorityHigh:
		return color.New(color.FgHiYellow).Sprint("high")
	default:
		return string(it.Priority)
	}
}

func whenCell(it model.Item) string {
	if it.Recurrence != nil {
		return string(it.Recurrence.Frequency)
	}
	if it.ReminderDate != nil {
		return it.ReminderDate.Local().Format("Mon Jan 2 15:04")
	}
	if it.DeletedAt != nil {
		return "deleted " + it.DeletedAt.Local().Format(time.DateOnly)
	}
	return ""
}
