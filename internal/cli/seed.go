package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/preemptiveoop/trialhub/internal/domain"
	"github.com/preemptiveoop/trialhub/internal/service"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// SeedFile is the fixture format read by the seed command.
type SeedFile struct {
	Experiments []SeedExperiment `yaml:"experiments"`
}

// SeedExperiment is one fixture experiment. Trials are submitted in order,
// then the experiment is published when Publish is set, then the owner
// ignores every creator listed in Ignore.
type SeedExperiment struct {
	Owner              string           `yaml:"owner"`
	Type               string           `yaml:"type"`
	Description        string           `yaml:"description"`
	Region             *domain.Location `yaml:"region"`
	RequireLocation    bool             `yaml:"requireLocation"`
	RequiredNumOfTrial int              `yaml:"requiredNumOfTrial"`
	Keywords           []string         `yaml:"keywords"`
	Publish            bool             `yaml:"publish"`
	Trials             []SeedTrial      `yaml:"trials"`
	Ignore             []string         `yaml:"ignore"`
}

// SeedTrial is one fixture trial.
type SeedTrial struct {
	Creator  string           `yaml:"creator"`
	Result   string           `yaml:"result"`
	Location *domain.Location `yaml:"location"`
}

// seedReport counts what a seed run wrote.
type seedReport struct {
	Experiments int
	Trials      int
	Published   int
	Ignored     int
}

func newSeedCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed <fixture.yaml>",
		Short: "Load fixture experiments and trials",
		Long: `Create the experiments and trials described in a YAML fixture file.

Records go through the same validation as API requests, so a fixture with an
unknown type or an inadmissible result stops the run at that record.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open fixture: %w", err)
			}
			defer func() { _ = f.Close() }()

			seed, err := decodeSeedFile(f)
			if err != nil {
				return err
			}

			app, err := opts.openApplication(cmd.Context(), os.Stderr)
			if err != nil {
				return err
			}
			defer app.close()

			report, err := applySeed(cmd.Context(), app.experimentService, seed, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(),
				"seeded %d experiments, %d trials (%d published, %d trials ignored)\n",
				report.Experiments, report.Trials, report.Published, report.Ignored)
			return err
		},
	}
}

// decodeSeedFile parses a fixture. Unknown keys are errors.
func decodeSeedFile(r io.Reader) (*SeedFile, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var seed SeedFile
	if err := dec.Decode(&seed); err != nil {
		if errors.Is(err, io.EOF) {
			return &seed, nil
		}
		return nil, fmt.Errorf("failed to parse fixture: %w", err)
	}
	return &seed, nil
}

// applySeed writes every fixture experiment through svc and prints one line
// per experiment to out. It stops at the first failing record.
func applySeed(ctx context.Context, svc service.ExperimentService, seed *SeedFile, out io.Writer) (seedReport, error) {
	var report seedReport

	for i, fx := range seed.Experiments {
		exp, err := svc.Create(ctx, service.NewExperimentParams{
			Owner:              fx.Owner,
			Type:               domain.ExperimentType(fx.Type),
			Description:        fx.Description,
			Region:             fx.Region,
			RequireLocation:    fx.RequireLocation,
			RequiredNumOfTrial: fx.RequiredNumOfTrial,
			Keywords:           fx.Keywords,
		})
		if err != nil {
			return report, fmt.Errorf("experiment %d: %w", i, err)
		}
		id := exp.DatabaseID()
		report.Experiments++

		for j, tr := range fx.Trials {
			if _, err := svc.AddTrial(ctx, tr.Creator, id, service.AddTrialParams{
				Result:   tr.Result,
				Location: tr.Location,
			}); err != nil {
				return report, fmt.Errorf("experiment %d trial %d: %w", i, j, err)
			}
			report.Trials++
		}

		if fx.Publish {
			if _, err := svc.Publish(ctx, fx.Owner, id); err != nil {
				return report, fmt.Errorf("experiment %d publish: %w", i, err)
			}
			report.Published++
		}

		for _, creator := range fx.Ignore {
			n, err := svc.IgnoreTrials(ctx, fx.Owner, id, creator, true)
			if err != nil {
				return report, fmt.Errorf("experiment %d ignore %s: %w", i, creator, err)
			}
			report.Ignored += n
		}

		if _, err := fmt.Fprintf(out, "%s\t%s\t%s\t%d trials\n", id, exp.Type(), fx.Owner, len(fx.Trials)); err != nil {
			return report, err
		}
	}
	return report, nil
}
