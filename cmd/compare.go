package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/kozaktomas/face-consistency/internal/verification"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var compareCmd = &cobra.Command{
	Use:   "compare URL URL [URL...]",
	Short: "Compare ad-hoc face photos against each other",
	Long: `Extract one face from every image reference (URL or local path) and verify
every pair. No outlier filtering, fallback or preprocessing is applied.

Examples:
  face-consistency compare https://example.com/a.jpg https://example.com/b.jpg
  face-consistency compare a.jpg b.jpg c.jpg --json`,
	RunE: runCompare,
}

func init() {
	rootCmd.AddCommand(compareCmd)

	compareCmd.Flags().Bool("json", false, "Output as JSON")
}

func runCompare(cmd *cobra.Command, args []string) error {
	if len(args) < 2 {
		return verification.ErrInsufficientImages
	}

	log := zap.L().Named("compare")
	comparer := verification.NewComparer(newCollaborators(cfg, log), log)
	res := comparer.Compare(cmd.Context(), args)

	if mustGetBool(cmd, "json") {
		return outputJSON(res)
	}
	printCompareMatrix(args, res)
	return nil
}

// outputJSON writes v to stdout as indented JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printCompareMatrix(refs []string, res verification.CompareResult) {
	fmt.Println("Images:")
	for i, ref := range refs {
		line := fmt.Sprintf("  [%d] %s", i, ref)
		if res.Errors[i] != "" {
			line += "  (" + res.Errors[i] + ")"
		}
		fmt.Println(line)
	}

	fmt.Println("\nMatrix (distance, * = same person):")
	var header strings.Builder
	header.WriteString("     ")
	for j := range refs {
		fmt.Fprintf(&header, " %8d", j)
	}
	fmt.Println(header.String())
	for i := range refs {
		var row strings.Builder
		fmt.Fprintf(&row, "  %2d ", i)
		for j := range refs {
			mark := " "
			if res.Matrix[i][j] {
				mark = "*"
			}
			fmt.Fprintf(&row, " %7.4f%s", res.Distances[i][j], mark)
		}
		fmt.Println(row.String())
	}
}
