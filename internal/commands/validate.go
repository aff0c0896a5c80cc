package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"card-rewards-api/internal/catalog"
	"card-rewards-api/internal/validation"
)

func newValidateCommand() *cobra.Command {
	var catalogPath string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check every card in a catalog file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd.OutOrStdout(), catalogPath)
		},
	}

	cmd.Flags().StringVar(&catalogPath, "catalog", "", "catalog file, YAML or JSON (required)")
	_ = cmd.MarkFlagRequired("catalog")

	return cmd
}

func runValidate(out io.Writer, path string) error {
	docs, err := catalog.LoadFile(path)
	if err != nil {
		return err
	}

	invalid := 0
	seen := make(map[string]bool)
	for i, doc := range docs {
		label := doc.ID
		if label == "" {
			label = fmt.Sprintf("cards[%d]", i)
		}

		err := validation.ValidateCard(doc)
		if err == nil && seen[doc.ID] {
			err = fmt.Errorf("duplicate card id")
		}
		seen[doc.ID] = true

		if err != nil {
			invalid++
			fmt.Fprintf(out, "FAIL  %s: %v\n", label, err)
			continue
		}
		fmt.Fprintf(out, "ok    %s (%d rules)\n", label, len(doc.Rewards))
	}

	if invalid > 0 {
		return fmt.Errorf("%d of %d cards invalid", invalid, len(docs))
	}
	fmt.Fprintf(out, "%d cards valid\n", len(docs))
	return nil
}
