package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/openintake/triage/internal/normalize"
	"github.com/openintake/triage/internal/types"
)

var (
	classifyChannel string
	classifySender  string
)

var classifyCmd = &cobra.Command{
	Use:   "classify [content]",
	Short: "Classify a single piece of content ad hoc",
	Long: `Normalize and classify one piece of content without touching stored
records. Content is taken from the argument, or from stdin when omitted.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var content string
		if len(args) == 1 {
			content = args[0]
		} else {
			data, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("reading stdin: %w", err)
			}
			content = string(data)
		}

		orch, err := newOrchestrator()
		if err != nil {
			return err
		}

		raw := &types.RawRecord{
			ID:       "adhoc",
			TenantID: tenantID,
			Channel:  types.SourceChannel(classifyChannel),
			Content:  content,
		}
		if classifySender != "" {
			raw.Attrs = map[string]any{"sender_email": classifySender}
		}
		unit, err := normalize.New(nil).Normalize(raw)
		if err != nil {
			return err
		}
		result := orch.Classify(context.Background(), unit)

		if jsonOutput {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		}
		renderClassification(result)
		return nil
	},
}

func renderClassification(result *types.ClassificationResult) {
	prioColor := color.New(color.FgGreen)
	switch result.FinalPriority {
	case types.PriorityHigh:
		prioColor = color.New(color.FgYellow)
	case types.PriorityCritical:
		prioColor = color.New(color.FgRed, color.Bold)
	}
	fmt.Printf("Priority: %s (score %d)\n", prioColor.Sprint(result.FinalPriority), result.Score)
	if result.RequiresHumanValidation {
		fmt.Printf("%s\n", color.New(color.FgRed).Sprint("Requires human validation"))
	}
	if len(result.Applications) == 0 {
		fmt.Println("No rules matched.")
		return
	}
	fmt.Println("Matched rules:")
	for _, app := range result.Applications {
		fmt.Printf("  %+d  %s: %s (confidence %.2f)\n",
			app.Boost, app.RuleName, app.Justification, app.Confidence)
		if app.LegalBasis != "" {
			fmt.Printf("       basis: %s\n", app.LegalBasis)
		}
	}
}

func init() {
	classifyCmd.Flags().StringVar(&classifyChannel, "channel", string(types.ChannelAPI), "source channel (EMAIL, UPLOAD, API)")
	classifyCmd.Flags().StringVar(&classifySender, "sender", "", "sender email for actor classification")
}
