package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nevernever69/InferDecode/internal/decode"
)

var strategiesCmd = &cobra.Command{
	Use:   "strategies",
	Short: "List the available decoding strategies",
	Run: func(cmd *cobra.Command, args []string) {
		for _, s := range decode.Strategies() {
			fmt.Printf("%-12s %-22s %s\n", s, s.Display(), s.Description())
		}
		fmt.Println()
		fmt.Println("Knobs: --top-k (top_k), --top-p (top_p), --temperature (all sampling),")
		fmt.Println("       typical_p and beam_width via config file")
	},
}

func init() {
	rootCmd.AddCommand(strategiesCmd)
}
