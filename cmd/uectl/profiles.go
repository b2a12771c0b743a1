package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jaydenhoang5291/ue-profile/internal/models"
	"github.com/jaydenhoang5291/ue-profile/internal/profile"
)

func (a *app) newListCmd() *cobra.Command {
	var q models.ProfileQuery

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List UE profiles",
		Long:  `List the UE profiles you created, grouped by creation date.`,
		Example: `  uectl list
  uectl list --supi 20893 -o yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ues, err := a.repo.List(cmd.Context(), q)
			if err != nil {
				return fmt.Errorf("failed to list profiles: %w", err)
			}
			return printProfiles(a.out, a.output, ues)
		},
	}

	cmd.Flags().StringVar(&q.Supi, "supi", "", "only profiles whose SUPI contains this text (case-insensitive)")
	cmd.Flags().IntVar(&q.Limit, "limit", 0, "maximum number of profiles (0 for all)")
	cmd.Flags().IntVar(&q.Offset, "offset", 0, "number of profiles to skip")
	return cmd
}

func (a *app) newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "get SUPI",
		Short:   "Show a UE profile",
		Example: `  uectl get imsi-208930000000001 -o yaml`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ue, err := a.repo.Get(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("failed to get profile: %w", err)
			}
			if a.output == formatTable {
				return printProfiles(a.out, a.output, []*profile.UeProfile{ue})
			}
			return printValue(a.out, a.output, ue)
		},
	}
}

func (a *app) newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "delete SUPI...",
		Aliases: []string{"rm"},
		Short:   "Delete UE profiles",
		Example: `  uectl delete imsi-208930000000001 imsi-208930000000002`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var errs []error
			for _, supi := range args {
				if err := a.repo.Delete(cmd.Context(), supi); err != nil {
					errs = append(errs, fmt.Errorf("failed to delete %s: %w", supi, err))
					continue
				}
				if _, err := fmt.Fprintf(a.out, "deleted %s\n", supi); err != nil {
					return err
				}
			}
			return errors.Join(errs...)
		},
	}
}

func (a *app) newExportCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "export SUPI",
		Short: "Export a UE profile as YAML",
		Long: `Export a UE profile as a YAML configuration file for the UE simulator.
Without --file the YAML is written to standard output.`,
		Example: `  uectl export imsi-208930000000001 -f ./ues/imsi-208930000000001.yaml`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := a.repo.Export(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("failed to export profile: %w", err)
			}
			if file == "" {
				_, err := a.out.Write(data)
				return err
			}

			if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
				return fmt.Errorf("failed to create directory: %w", err)
			}
			if err := os.WriteFile(file, data, 0o600); err != nil {
				return fmt.Errorf("failed to write %s: %w", file, err)
			}
			_, err = fmt.Fprintf(a.out, "exported %s to %s\n", args[0], file)
			return err
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "write the YAML to this file")
	return cmd
}

func (a *app) newTemplateCmd() *cobra.Command {
	var gen bool

	cmd := &cobra.Command{
		Use:   "template",
		Short: "Print the blank profile form",
		Long: `Print the blank form used by create, or with --generator the form used by
generate. The output can be edited and passed back with --file.`,
		Example: `  uectl template > ue.yaml
  uectl template --generator -o json`,
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationOffline: "true"},
		RunE: func(_ *cobra.Command, _ []string) error {
			if gen {
				return printDocument(a.out, a.output, profile.GeneratorTemplate())
			}
			return printDocument(a.out, a.output, profile.Template())
		},
	}

	cmd.Flags().BoolVar(&gen, "generator", false, "print the generation form")
	return cmd
}
