package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/dendrex/internal/transport/dto"
	analysisuc "github.com/kailas-cloud/dendrex/internal/usecase/analysis"
)

type cardSortFlags struct {
	input    string
	out      string
	pretty   bool
	maxCards int
}

func newCardSortCommand(a *app) *cobra.Command {
	f := &cardSortFlags{}

	cmd := &cobra.Command{
		Use:   "cardsort",
		Short: "Cluster cards by how often participants grouped them together",
		Long: `Cluster cards by how often participants grouped them together.

The input is a card-sort export CSV with participant, card index, card label
and category label (or sorted position) columns.

Examples:
  dendrexctl cardsort --input sorts.csv
  dendrexctl cardsort --input sorts.csv --max-cards 50 --out cards.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCardSort(cmd, a, f)
		},
	}

	cmd.Flags().StringVarP(&f.input, "input", "i", "", "card-sort CSV (- for stdin)")
	cmd.Flags().StringVarP(&f.out, "out", "o", "", "write the result to this file instead of stdout")
	cmd.Flags().BoolVar(&f.pretty, "pretty", false, "indent JSON output")
	cmd.Flags().IntVar(&f.maxCards, "max-cards", 0, "override the distinct card cap")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

func runCardSort(cmd *cobra.Command, a *app, f *cardSortFlags) error {
	svc, err := a.service(func(o *analysisuc.Options) {
		if f.maxCards > 0 {
			o.CardSort.MaxCards = f.maxCards
		}
	})
	if err != nil {
		return err
	}

	in, err := openInput(cmd, f.input)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	rows, err := readCSV(in)
	if err != nil {
		return err
	}

	env, err := svc.AnalyzeCardSort(cmd.Context(), rows)
	if err != nil {
		return fmt.Errorf("card sort: %w", err)
	}
	return writeOutput(cmd, f.out, f.pretty, dto.NewSuccess(dto.EnvelopeFrom(env), "Card sort analysis completed"))
}
