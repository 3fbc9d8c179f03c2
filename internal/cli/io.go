package cli

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/kailas-cloud/dendrex/internal/transport/dto"
)

// stdinPath selects standard input for --input.
const stdinPath = "-"

// utf8BOM is stripped from the first header cell; spreadsheet exports often carry it.
const utf8BOM = "\ufeff"

// openInput opens path for reading, or stdin when path is "-".
func openInput(cmd *cobra.Command, path string) (io.ReadCloser, error) {
	if path == stdinPath {
		return io.NopCloser(cmd.InOrStdin()), nil
	}
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	return f, nil
}

// readCSV decodes a CSV with a header row into rows keyed by column name.
// Short rows leave their trailing columns absent.
func readCSV(r io.Reader) ([]map[string]any, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], utf8BOM)
	}

	var rows []map[string]any
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}

		row := make(map[string]any, len(header))
		for i, col := range header {
			if i >= len(rec) || col == "" {
				continue
			}
			row[col] = rec[i]
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// readCorpus decodes a preprocessed corpus payload.
func readCorpus(r io.Reader) (dto.Corpus, error) {
	var c dto.Corpus
	if err := json.NewDecoder(r).Decode(&c); err != nil {
		return dto.Corpus{}, fmt.Errorf("decode corpus: %w", err)
	}
	return c, nil
}

// isJSONInput reports whether path names a JSON corpus rather than a CSV table.
func isJSONInput(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".json")
}

// writeOutput encodes v as JSON to path, or to the command's stdout when path is empty.
func writeOutput(cmd *cobra.Command, path string, pretty bool, v any) (err error) {
	var w io.Writer = cmd.OutOrStdout()
	if path != "" {
		f, cerr := os.Create(filepath.Clean(path))
		if cerr != nil {
			return fmt.Errorf("create output: %w", cerr)
		}
		defer func() {
			if cerr := f.Close(); cerr != nil && err == nil {
				err = fmt.Errorf("close output: %w", cerr)
			}
		}()
		w = f
	}

	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
