package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	mq "github.com/gofhir/miiquality"
	"github.com/gofhir/miiquality/rules"
)

func rulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "List the quality checks",
		Long: `Lists the checks of the built-in catalog, plus those of --catalog, in the
order their findings are reported. Disabled checks are omitted.`,
		Args: cobra.NoArgs,
		RunE: runRules,
	}

	f := cmd.Flags()
	f.String("catalog", "", "YAML file with additional rules")
	f.StringSlice("disable", nil, "check ids to skip")
	f.String("category", "", "only list checks of this category")
	f.Bool("json", false, "output the catalog as JSON")
	return cmd
}

func runRules(cmd *cobra.Command, _ []string) error {
	cfg, log, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	eng, err := newEngine(cfg, log)
	if err != nil {
		return err
	}

	list := eng.Catalog().Rules()
	if name, _ := cmd.Flags().GetString("category"); name != "" {
		category, ok := mq.ParseCategory(name)
		if !ok {
			return fmt.Errorf("unknown check category %q", name)
		}
		list = eng.Catalog().ByCategory(category)
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(list)
	}

	cmd.Println(rulesTable(list))
	cmd.Printf("%d checks\n", len(list))
	return nil
}

func rulesTable(list []*rules.Rule) string {
	cell := lipgloss.NewStyle().Padding(0, 1)

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "CATEGORY", "SEVERITY", "MODULES", "DESCRIPTION").
		StyleFunc(func(_, _ int) lipgloss.Style { return cell })

	for _, r := range list {
		t.Row(r.ID, string(r.Category), string(r.Severity), moduleNames(r.Modules), r.Description)
	}
	return t.Render()
}

func moduleNames(mods []mq.Module) string {
	if len(mods) == 0 {
		return "all"
	}
	names := make([]string, len(mods))
	for i, m := range mods {
		names[i] = m.String()
	}
	return strings.Join(names, ",")
}
