package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/jaydenhoang5291/ue-profile/internal/document"
	"github.com/jaydenhoang5291/ue-profile/internal/profile"
)

// Output formats.
const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

const dateLayout = "2006-01-02"

func validateFormat(format string) error {
	switch format {
	case formatTable, formatJSON, formatYAML:
		return nil
	default:
		return fmt.Errorf("invalid output format: %s (valid: table, json, yaml)", format)
	}
}

// printValue writes v as JSON or YAML.
func printValue(w io.Writer, format string, v any) error {
	if format == formatYAML {
		return profile.EncodeYAML(w, v)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to write JSON: %w", err)
	}
	return nil
}

// printDocument writes a document. Tables fall back to YAML, which keeps
// the member order of the form.
func printDocument(w io.Writer, format string, doc document.Value) error {
	if format == formatTable {
		format = formatYAML
	}
	return printValue(w, format, doc)
}

// printProfiles writes profiles in format. Tables are grouped by creation
// date in the order the profiles were given.
func printProfiles(w io.Writer, format string, ues []*profile.UeProfile) error {
	if format != formatTable {
		if ues == nil {
			ues = []*profile.UeProfile{}
		}
		return printValue(w, format, ues)
	}

	if len(ues) == 0 {
		_, err := fmt.Fprintln(w, "No UE profiles found.")
		return err
	}

	for i, group := range groupByDate(ues) {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w, "%s (%d)\n", group.date, len(group.profiles)); err != nil {
			return fmt.Errorf("failed to write group header: %w", err)
		}
		if err := writeProfileTable(w, group.profiles); err != nil {
			return err
		}
	}
	return nil
}

func writeProfileTable(w io.Writer, ues []*profile.UeProfile) error {
	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	if _, err := fmt.Fprintln(tw, "SUPI\tPLMN\tOP TYPE\tSCHEME\tSESSIONS\tSUCI"); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, ue := range ues {
		if _, err := fmt.Fprintf(tw, "%s\t%s-%s\t%s\t%d\t%d\t%s\n",
			ue.Supi,
			ue.PlmnID.Mcc, ue.PlmnID.Mnc,
			dash(ue.OpType),
			ue.ProtectionScheme,
			len(ue.Sessions),
			dash(ue.Suci),
		); err != nil {
			return fmt.Errorf("failed to write profile: %w", err)
		}
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("failed to flush writer: %w", err)
	}
	return nil
}

type dateGroup struct {
	date     string
	profiles []*profile.UeProfile
}

// groupByDate groups profiles by creation day, in order of first
// appearance. Profiles without a creation time go under "unknown".
func groupByDate(ues []*profile.UeProfile) []dateGroup {
	var groups []dateGroup
	index := make(map[string]int)
	for _, ue := range ues {
		date := "unknown"
		if !ue.CreatedAt.IsZero() {
			date = ue.CreatedAt.Local().Format(dateLayout)
		}
		i, ok := index[date]
		if !ok {
			i = len(groups)
			index[date] = i
			groups = append(groups, dateGroup{date: date})
		}
		groups[i].profiles = append(groups[i].profiles, ue)
	}
	return groups
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
