package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"mercator-hq/crucible/pkg/catalog"
	"mercator-hq/crucible/pkg/cli"
	"mercator-hq/crucible/pkg/experiment"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect the skill and tool catalog",
}

var catalogCheckCmd = &cobra.Command{
	Use:   "check <skill|tool> <name>",
	Short: "Check whether a skill or tool is registered",
	Long: `Look a name up in the configured catalog. The command exits with status 2
when the name is not registered and 6 when the catalog cannot be reached.`,
	Example: `  crucible catalog check skill summarize
  crucible catalog check tool web_search --config crucible.yaml`,
	Args:      cobra.ExactArgs(2),
	ValidArgs: []string{string(catalog.KindSkill), string(catalog.KindTool)},
	RunE:      checkCatalog,
}

func init() {
	rootCmd.AddCommand(catalogCmd)
	catalogCmd.AddCommand(catalogCheckCmd)
}

func checkCatalog(cmd *cobra.Command, args []string) error {
	kind, name := catalog.Kind(args[0]), args[1]
	if kind != catalog.KindSkill && kind != catalog.KindTool {
		return fmt.Errorf("unknown catalog kind %q (expected skill or tool)", args[0])
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg, cmd.ErrOrStderr(), true)
	if err != nil {
		return err
	}

	c := &components{cfg: cfg, logger: logger}
	if err := c.buildCatalog(); err != nil {
		return err
	}

	ctx := commandContext(cmd)
	var exists bool
	if kind == catalog.KindSkill {
		exists, err = c.catalog.SkillExists(ctx, name)
	} else {
		exists, err = c.catalog.ToolExists(ctx, name)
	}
	if err != nil {
		return err
	}

	if err := render(cmd, catalogView{Kind: kind, Name: name, Exists: exists}); err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %s %q is not registered", experiment.ErrValidation, kind, name)
	}
	return nil
}

type catalogView struct {
	Kind   catalog.Kind `json:"kind"`
	Name   string       `json:"name"`
	Exists bool         `json:"exists"`
}

func (v catalogView) Headers() []string { return []string{"KIND", "NAME", "EXISTS"} }

func (v catalogView) Rows() [][]string {
	return [][]string{{string(v.Kind), v.Name, strconv.FormatBool(v.Exists)}}
}

var _ cli.Table = catalogView{}
