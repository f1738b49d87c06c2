// Package commands implements CLI command handlers for retrospect.
package commands

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/retrospect/internal/config"
	"github.com/Sumatoshi-tech/retrospect/internal/runner"
)

// drillDownLabels is the number of snapshot labels a drill-down takes.
const drillDownLabels = 2

// ErrProjectRequired is returned when neither a project name nor
// --list-projects was given.
var ErrProjectRequired = errors.New("a project name is required (or use --list-projects)")

// RootCommand holds the root command's flag state.
type RootCommand struct {
	configPath  string
	model       string
	zipDir      string
	outputDir   string
	planOnly    bool
	listMode    bool
	drillLabels []string
}

// NewRootCommand creates the retrospect root command.
func NewRootCommand() *cobra.Command {
	rc := &RootCommand{}

	cmd := &cobra.Command{
		Use:   "retrospect [project]",
		Short: "Reconstruct a project's development history from zip snapshots",
		Long: `Retrospect analyzes timestamped zip snapshots of a project and
reconstructs its development history as a narrative Markdown report.

Snapshots are zip files named <project>_<suffix>.zip, where the suffix is
a date (20250923, 2025-09-23, 250923b), a sequence number or a version.
Consecutive snapshots are diffed locally, changes are classified by
magnitude, and an LLM narrates each analysis unit. Progress is
checkpointed, so an interrupted run resumes where it stopped.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          rc.run,
	}

	cmd.Flags().StringVar(&rc.configPath, "config", "", "Config file path (default: .retrospect.yaml)")
	cmd.Flags().StringVarP(&rc.model, "model", "m", "", "Model to use (a key from the models map in the config)")
	cmd.Flags().StringVar(&rc.zipDir, "zip-dir", "", "Directory containing snapshot zip files")
	cmd.Flags().StringVar(&rc.outputDir, "output-dir", "", "Directory for reports, progress and caches")
	cmd.Flags().BoolVar(&rc.planOnly, "plan-only", false, "Stop after the local planning phases, before any API call")
	cmd.Flags().BoolVar(&rc.listMode, "list-projects", false, "List projects found in the zip directory and exit")
	cmd.Flags().StringSliceVar(&rc.drillLabels, "drill-down", nil,
		"Deep-dive one transition between two snapshot labels (format: LABEL_A,LABEL_B)")

	return cmd
}

func (rc *RootCommand) run(cmd *cobra.Command, args []string) error {
	cfg, err := rc.loadConfig()
	if err != nil {
		return err
	}

	if rc.listMode {
		return listProjects(cmd, cfg)
	}
	if len(args) == 0 {
		_ = cmd.Help()

		return ErrProjectRequired
	}
	project := args[0]

	if len(rc.drillLabels) > 0 {
		if len(rc.drillLabels) != drillDownLabels {
			return fmt.Errorf("--drill-down takes exactly %d labels, got %d", drillDownLabels, len(rc.drillLabels))
		}

		return runner.New(cfg, project).DrillDown(cmd.Context(), rc.drillLabels[0], rc.drillLabels[1])
	}

	return runner.New(cfg, project).Analyze(cmd.Context(), rc.planOnly)
}

// loadConfig reads the configuration and applies flag overrides. Empty
// override values leave the configured value in place.
func (rc *RootCommand) loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(rc.configPath)
	if err != nil {
		return nil, err
	}

	if rc.zipDir != "" {
		cfg.ZipDirectory = rc.zipDir
	}
	if rc.outputDir != "" {
		cfg.Output.Directory = rc.outputDir
	}
	if rc.model != "" {
		if _, ok := cfg.Models[rc.model]; !ok {
			return nil, fmt.Errorf("unknown model %q (available: %s)", rc.model, modelKeys(cfg))
		}
		cfg.CurrentEngine = rc.model
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func modelKeys(cfg *config.Config) string {
	keys := make([]string, 0, len(cfg.Models))
	for k := range cfg.Models {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return strings.Join(keys, ", ")
}
