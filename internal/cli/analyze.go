package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/dendrex/internal/analysis/hierarchy"
	"github.com/kailas-cloud/dendrex/internal/transport/dto"
	analysisuc "github.com/kailas-cloud/dendrex/internal/usecase/analysis"
)

type analyzeFlags struct {
	input       string
	out         string
	pretty      bool
	preprocess  bool
	maxEntities int
	linkage     string
}

func newAnalyzeCommand(a *app) *cobra.Command {
	f := &analyzeFlags{}

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Cluster text rows by TF-IDF cosine similarity",
		Long: `Cluster text rows by TF-IDF cosine similarity.

The input is a CSV with a header row holding the id, attribute and text
columns named in the config (default: id, url, description). A .json input
is read as a preprocessed corpus, as written by --preprocess.

Examples:
  dendrexctl analyze --input rows.csv
  dendrexctl analyze --input rows.csv --preprocess --out corpus.json
  dendrexctl analyze --input corpus.json --out result.json --pretty`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAnalyze(cmd, a, f)
		},
	}

	cmd.Flags().StringVarP(&f.input, "input", "i", "", "CSV rows or JSON corpus (- for stdin)")
	cmd.Flags().StringVarP(&f.out, "out", "o", "", "write the result to this file instead of stdout")
	cmd.Flags().BoolVar(&f.pretty, "pretty", false, "indent JSON output")
	cmd.Flags().BoolVar(&f.preprocess, "preprocess", false, "stop after aggregation and print the corpus")
	cmd.Flags().IntVar(&f.maxEntities, "max-entities", 0, "override the distinct id cap")
	cmd.Flags().StringVar(&f.linkage, "linkage", "", "override the linkage method: ward or average")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

func runAnalyze(cmd *cobra.Command, a *app, f *analyzeFlags) error {
	svc, err := a.service(func(o *analysisuc.Options) {
		if f.maxEntities > 0 {
			o.MaxEntities = f.maxEntities
		}
		if f.linkage != "" {
			o.Linkage = hierarchy.Method(f.linkage)
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

	ctx := cmd.Context()

	if isJSONInput(f.input) {
		if f.preprocess {
			return fmt.Errorf("--preprocess needs CSV input, got a corpus")
		}
		payload, err := readCorpus(in)
		if err != nil {
			return err
		}
		c, err := payload.ToDomain(svc.Options().MaxEntities)
		if err != nil {
			return fmt.Errorf("load corpus: %w", err)
		}
		env, err := svc.AnalyzeCorpus(ctx, c)
		if err != nil {
			return fmt.Errorf("analyze corpus: %w", err)
		}
		return writeOutput(cmd, f.out, f.pretty, dto.NewSuccess(dto.EnvelopeFrom(env), "Analysis completed"))
	}

	rows, err := readCSV(in)
	if err != nil {
		return err
	}

	if f.preprocess {
		c, err := svc.Preprocess(ctx, rows)
		if err != nil {
			return fmt.Errorf("preprocess: %w", err)
		}
		return writeOutput(cmd, f.out, f.pretty, dto.CorpusFrom(c))
	}

	env, err := svc.Analyze(ctx, rows)
	if err != nil {
		return fmt.Errorf("analyze: %w", err)
	}
	return writeOutput(cmd, f.out, f.pretty, dto.NewSuccess(dto.EnvelopeFrom(env), "Analysis completed"))
}
