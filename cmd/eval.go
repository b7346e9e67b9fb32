package cmd

import (
	"fmt"

	"alertfilter/core"
	"alertfilter/detect"

	"github.com/spf13/cobra"
)

// evalResult is the --json output of eval
type evalResult struct {
	Match bool   `json:"match"`
	Empty bool   `json:"empty_rule,omitempty"`
	Tree  string `json:"tree,omitempty"`
}

// NewEvalCmd creates the 'eval' command.
func NewEvalCmd() *cobra.Command {
	var (
		rulePath  string
		eventPath string
		showTree  bool
		maxDepth  int
		maxNodes  int
	)

	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Evaluate a rule against an event",
		Long: `Evaluate a JSON or YAML rule document against a JSON event without
touching storage. An empty rule matches every event, the same way an
unset publish filter alerts on everything. Use - to read from stdin.`,
		Example: `  alertfilter eval --rule filter.yaml --event event.json
  cat event.json | alertfilter eval --rule filter.json --event -`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			limits := core.RuleLimits{MaxDepth: maxDepth, MaxNodes: maxNodes}

			ruleData, err := readInput(cmd, rulePath)
			if err != nil {
				return err
			}
			eventData, err := readInput(cmd, eventPath)
			if err != nil {
				return err
			}

			rule, err := core.ParseRule(ruleData, limits)
			if err != nil {
				return fmt.Errorf("invalid rule: %w", err)
			}
			event, err := core.DecodeEvent(eventData)
			if err != nil {
				return fmt.Errorf("invalid event: %w", err)
			}

			result := evalResult{Match: true, Empty: rule == nil}
			if rule != nil {
				result.Match = detect.NewEvaluator(nil, detect.WithMaxNodes(maxNodes)).Evaluate(rule, event)
				if showTree {
					result.Tree = core.FormatRule(rule)
				}
			}

			out := cmd.OutOrStdout()
			if outputJSON {
				return outputAsJSON(out, result)
			}

			if result.Tree != "" && !quiet {
				printSection(out, "Rule")
				fmt.Fprintln(out, result.Tree)
			}
			if result.Empty && !quiet {
				warningColor.Fprintln(out, "Empty rule: every event matches")
			}
			fmt.Fprintln(out, formatVerdict(result.Match, "match", "no match"))
			return nil
		},
	}

	cmd.Flags().StringVar(&rulePath, "rule", "", "Rule document (JSON or YAML), - for stdin")
	cmd.Flags().StringVar(&eventPath, "event", "", "Event document (JSON), - for stdin")
	cmd.Flags().BoolVar(&showTree, "tree", false, "Print the parsed rule tree")
	cmd.Flags().IntVar(&maxDepth, "max-depth", core.DefaultMaxRuleDepth, "Maximum rule nesting depth")
	cmd.Flags().IntVar(&maxNodes, "max-nodes", core.DefaultMaxRuleNodes, "Maximum rule node count")
	_ = cmd.MarkFlagRequired("rule")
	_ = cmd.MarkFlagRequired("event")

	return cmd
}

// validateResult is the --json output of validate
type validateResult struct {
	Valid     bool   `json:"valid"`
	Nodes     int    `json:"nodes"`
	Canonical string `json:"canonical"`
}

// NewValidateCmd creates the 'validate' command.
func NewValidateCmd() *cobra.Command {
	var (
		rulePath string
		maxDepth int
		maxNodes int
	)

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a rule document",
		Long: `Apply the checks a publish filter must pass before it is stored: schema,
parse limits and operator validity. Prints the canonical JSON form that
would be stored.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			limits := core.RuleLimits{MaxDepth: maxDepth, MaxNodes: maxNodes}

			data, err := readInput(cmd, rulePath)
			if err != nil {
				return err
			}

			rule, err := core.ValidateRuleDocument(data, limits)
			if err != nil {
				return fmt.Errorf("invalid rule: %w", err)
			}

			canonical, err := core.MarshalRule(rule)
			if err != nil {
				return fmt.Errorf("failed to encode rule: %w", err)
			}

			result := validateResult{
				Valid:     true,
				Nodes:     core.CountNodes(rule),
				Canonical: string(canonical),
			}

			out := cmd.OutOrStdout()
			if outputJSON {
				return outputAsJSON(out, result)
			}

			if !quiet {
				successColor.Fprintf(out, "✓ Rule is valid (%d nodes)\n", result.Nodes)
			}
			fmt.Fprintln(out, result.Canonical)
			return nil
		},
	}

	cmd.Flags().StringVar(&rulePath, "rule", "", "Rule document (JSON or YAML), - for stdin")
	cmd.Flags().IntVar(&maxDepth, "max-depth", core.DefaultMaxRuleDepth, "Maximum rule nesting depth")
	cmd.Flags().IntVar(&maxNodes, "max-nodes", core.DefaultMaxRuleNodes, "Maximum rule node count")
	_ = cmd.MarkFlagRequired("rule")

	return cmd
}
