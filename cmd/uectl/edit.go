package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"github.com/jaydenhoang5291/ue-profile/internal/console"
	"github.com/jaydenhoang5291/ue-profile/internal/document"
)

// editFlags are the document edits shared by create, edit and generate.
type editFlags struct {
	file   string
	sets   []string
	adds   []string
	merges []string
	remove []string
	dryRun bool
}

func (f *editFlags) register(cmd *cobra.Command, withFile bool) {
	if withFile {
		cmd.Flags().StringVarP(&f.file, "file", "f", "", "start from this YAML or JSON document instead of the blank form")
	}
	cmd.Flags().StringArrayVar(&f.sets, "set", nil, "set a field, e.g. --set plmnid.mcc=001 (repeatable)")
	cmd.Flags().StringArrayVar(&f.adds, "add", nil, "append the default element to an array, e.g. --add sessions (repeatable)")
	cmd.Flags().StringArrayVar(&f.merges, "merge", nil, `merge JSON into an array item, e.g. --merge 'sessions.0.slice={"sst":1}' (repeatable)`)
	cmd.Flags().StringArrayVar(&f.remove, "remove", nil, "remove an array item, e.g. --remove sessions.1 (repeatable)")
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "validate and print the document without submitting it")
}

// edits parses the flags in the order they are applied: additions first
// so new items can be set, then sets and merges, then removals.
func (f *editFlags) edits() ([]console.Edit, error) {
	var out []console.Edit
	groups := []struct {
		op  console.Op
		raw []string
	}{
		{console.OpAdd, f.adds},
		{console.OpSet, f.sets},
		{console.OpMerge, f.merges},
		{console.OpRemove, f.remove},
	}
	for _, g := range groups {
		for _, raw := range g.raw {
			e, err := console.ParseEdit(g.op, raw)
			if err != nil {
				return nil, err
			}
			out = append(out, e)
		}
	}
	return out, nil
}

// run applies the flags to s and submits it, or prints the document on a
// dry run. The session is canceled when anything fails.
func (f *editFlags) run(cmd *cobra.Command, a *app, s *console.Session) error {
	if f.file != "" {
		doc, err := readDocument(f.file)
		if err != nil {
			s.Cancel()
			return err
		}
		if err := s.Load(doc); err != nil {
			s.Cancel()
			return fmt.Errorf("failed to load %s: %w", f.file, err)
		}
	}

	edits, err := f.edits()
	if err == nil {
		err = s.ApplyAll(edits)
	}
	if err != nil {
		s.Cancel()
		return err
	}

	if f.dryRun {
		defer s.Cancel()
		if err := s.Validate(); err != nil {
			return err
		}
		return printDocument(a.out, a.output, s.Document())
	}

	ues, err := s.Submit(cmd.Context())
	if err != nil {
		s.Cancel()
		return fmt.Errorf("failed to %s: %w", s.Kind(), err)
	}
	if a.output == formatTable {
		if _, err := fmt.Fprintf(a.out, "%s: %d profile(s)\n", s.Kind(), len(ues)); err != nil {
			return err
		}
	}
	return printProfiles(a.out, a.output, ues)
}

// readDocument reads a YAML or JSON file into a document, keeping the
// member order of the file.
func readDocument(path string) (document.Value, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return document.Value{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	js, err := yaml.YAMLToJSON(data)
	if err != nil {
		return document.Value{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	doc, err := document.Parse(js)
	if err != nil {
		return document.Value{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return doc, nil
}

func (a *app) newCreateCmd() *cobra.Command {
	var f editFlags

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a UE profile",
		Long: `Create a UE profile from the blank form, or from --file, with the given
edits applied. plmnid.mcc and plmnid.mnc are required.`,
		Example: `  uectl create --set supi=imsi-001010000000001 --set plmnid.mcc=001 --set plmnid.mnc=01
  uectl create -f ue.yaml --add sessions --set sessions.1.apn=ims`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return f.run(cmd, a, console.NewCreateSession(a.repo, console.WithLogger(a.logger)))
		},
	}

	f.register(cmd, true)
	return cmd
}

func (a *app) newEditCmd() *cobra.Command {
	var f editFlags

	cmd := &cobra.Command{
		Use:   "edit SUPI",
		Short: "Edit a stored UE profile",
		Long: `Fetch a UE profile, apply the edits and store the result. The SUPI cannot
be changed.`,
		Example: `  uectl edit imsi-208930000000001 --set amf=9001 --remove gnbSearchList.1`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			existing, err := a.repo.Get(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("failed to get profile: %w", err)
			}
			s, err := console.NewEditSession(a.repo, existing, console.WithLogger(a.logger))
			if err != nil {
				return err
			}
			return f.run(cmd, a, s)
		},
	}

	f.register(cmd, false)
	return cmd
}

func (a *app) newGenerateCmd() *cobra.Command {
	var (
		f     editFlags
		count int
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate random UE profiles",
		Long: `Generate UE profiles on the server from the generation form. Credentials,
IMEIs and SUCIs are generated for every profile.`,
		Example: `  uectl generate -n 10 --set plmnid.mcc=208 --set plmnid.mnc=93
  uectl generate -f generator.yaml --set 'ueConfiguredNssai.0.sd=010203'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("count") {
				f.sets = append([]string{"num_ues=" + strconv.Itoa(count)}, f.sets...)
			}
			return f.run(cmd, a, console.NewGenerateSession(a.repo, console.WithLogger(a.logger)))
		},
	}

	f.register(cmd, true)
	cmd.Flags().IntVarP(&count, "count", "n", 1, "number of profiles to generate")
	return cmd
}
