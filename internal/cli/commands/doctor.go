package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/GriffinCanCode/shadowbox/internal/domain/lifecycle"
	"github.com/GriffinCanCode/shadowbox/internal/domain/sandbox"
	"github.com/GriffinCanCode/shadowbox/internal/report"
	"github.com/GriffinCanCode/shadowbox/internal/shared/platform"
	"github.com/GriffinCanCode/shadowbox/internal/shared/types"
)

// DoctorOptions holds options for the doctor command.
type DoctorOptions struct {
	Format string
	Jobs   int
}

// NewDoctorCommand creates the doctor command.
func NewDoctorCommand() *cobra.Command {
	opts := &DoctorOptions{}
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Boot every enabled version through a full test lifecycle",
		Long: `Run a probe test on every enabled platform version. Each run resolves the
framework artifact, builds an isolated environment, creates the application,
checks the version identity and tears everything down again.

The command fails when any version fails.`,
		Example: `  # Check every version
  shadowbox doctor

  # Markdown report for CI logs
  shadowbox doctor --format markdown`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDoctor(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Format, "format", "f", report.FormatTable, "Report format: table, markdown, csv, json")
	cmd.Flags().IntVarP(&opts.Jobs, "jobs", "j", 2, "Versions checked concurrently")
	return cmd
}

// ProbeClass is the test class doctor runs on every version
func ProbeClass() lifecycle.TestClass {
	return lifecycle.TestClass{
		Name:   "Doctor",
		Config: types.Config{Versions: []platform.Version{platform.All}},
		Methods: []lifecycle.TestMethod{
			{Name: "probe", Body: probe},
		},
	}
}

func probe(tc *lifecycle.Context) error {
	if tc.Env().MainThread() != tc.Thread() {
		return fmt.Errorf("main thread not bound")
	}
	if app := tc.Application(); app == nil || !app.Created() {
		return fmt.Errorf("application not created")
	}
	statics, ok := tc.Env().Statics(sandbox.DefaultVersionClass)
	if !ok {
		return fmt.Errorf("version class %s not loaded", sandbox.DefaultVersionClass)
	}
	if got := statics[sandbox.FieldSDKInt]; got != int64(tc.Version()) {
		return fmt.Errorf("%s is %v, want %d", sandbox.FieldSDKInt, got, tc.Version())
	}
	return nil
}

func runDoctor(cmd *cobra.Command, opts *DoctorOptions) error {
	rt, err := RuntimeFrom(cmd.Context())
	if err != nil {
		return err
	}
	orch, err := rt.Orchestrator()
	if err != nil {
		return err
	}

	units, err := orch.Expand(ProbeClass())
	if err != nil {
		return err
	}

	results := make([]lifecycle.Result, len(units))
	var g errgroup.Group
	g.SetLimit(max(opts.Jobs, 1))
	for i, u := range units {
		g.Go(func() error {
			results[i] = orch.Run(cmd.Context(), u)
			return nil
		})
	}
	_ = g.Wait()

	rep := report.Build(results)
	if err := rep.Render(cmd.OutOrStdout(), opts.Format); err != nil {
		return err
	}
	if !rep.OK() {
		return fmt.Errorf("%d of %d versions failed", rep.Failed, rep.Total)
	}
	return nil
}
