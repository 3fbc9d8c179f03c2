// Package dto holds the JSON wire models shared by the HTTP and CLI transports.
package dto

import (
	"github.com/kailas-cloud/dendrex/internal/domain/corpus"
	"github.com/kailas-cloud/dendrex/internal/domain/result"
)

// ErrorCode is the machine-readable failure code.
type ErrorCode string

// Error codes.
const (
	ErrorCodeBadRequest         ErrorCode = "bad_request"
	ErrorCodeMissingColumns     ErrorCode = "missing_columns"
	ErrorCodeVectorization      ErrorCode = "vectorization_error"
	ErrorCodeEmptyCorpus        ErrorCode = "empty_corpus"
	ErrorCodeClustering         ErrorCode = "clustering_error"
	ErrorCodeFileSizeExceeded   ErrorCode = "file_size_exceeded"
	ErrorCodeNotFound           ErrorCode = "not_found"
	ErrorCodeMethodNotAllowed   ErrorCode = "method_not_allowed"
	ErrorCodeInternalError      ErrorCode = "internal_error"
	ErrorCodeServiceUnavailable ErrorCode = "service_unavailable"
)

// ErrorBody describes a failure.
type ErrorBody struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// Failure is the response shape of every failed request.
type Failure struct {
	Success bool      `json:"success"`
	Error   ErrorBody `json:"error"`
}

// NewFailure builds a Failure.
func NewFailure(code ErrorCode, message string) Failure {
	return Failure{Error: ErrorBody{Code: code, Message: message}}
}

// Success is the response shape of every successful analysis request.
type Success struct {
	Success bool   `json:"success"`
	Data    any    `json:"data"`
	Message string `json:"message,omitempty"`
}

// NewSuccess builds a Success.
func NewSuccess(data any, message string) Success {
	return Success{Success: true, Data: data, Message: message}
}

// RowsRequest carries decoded spreadsheet rows keyed by column name.
type RowsRequest struct {
	Rows []map[string]any `json:"rows"`
}

// Corpus is the preprocessed payload exchanged between the two analysis phases.
type Corpus struct {
	Descriptions   []string          `json:"descriptions"`
	UniqueIDs      []string          `json:"unique_ids"`
	IDAttributeMap map[string]string `json:"id_attribute_map"`
}

// CorpusFrom converts an aggregated corpus.
func CorpusFrom(c *corpus.Corpus) Corpus {
	return Corpus{
		Descriptions:   c.Documents(),
		UniqueIDs:      c.IDs(),
		IDAttributeMap: c.AttributeMap(),
	}
}

// ToDomain rebuilds the corpus, applying the entity cap.
func (c Corpus) ToDomain(maxEntities int) (*corpus.Corpus, error) {
	out, err := corpus.FromColumns(c.UniqueIDs, c.Descriptions, c.IDAttributeMap, maxEntities)
	if err != nil {
		return nil, err //nolint:wrapcheck // domain sentinel passes through
	}
	return out, nil
}

// Heatmap is the reordered similarity matrix and its axis ids.
type Heatmap struct {
	Z   [][]float32 `json:"z"`
	IDs []string    `json:"ids"`
}

// Dendrogram is the plottable merge tree.
type Dendrogram struct {
	IVL       []string    `json:"ivl"`
	ICoord    [][]float64 `json:"icoord"`
	DCoord    [][]float64 `json:"dcoord"`
	ColorList []string    `json:"color_list"`
	Leaves    []int       `json:"leaves"`
}

// Metadata carries per-id attributes.
type Metadata struct {
	IDAttributeMap map[string]string `json:"id_attribute_map"`
}

// Envelope is the analysis result.
type Envelope struct {
	Heatmap    Heatmap    `json:"heatmap"`
	Dendrogram Dendrogram `json:"dendrogram"`
	Metadata   Metadata   `json:"metadata"`
}

// EnvelopeFrom converts a packaged result. Slices alias the result.
func EnvelopeFrom(env result.Envelope) Envelope {
	d := env.Dendrogram()
	return Envelope{
		Heatmap: Heatmap{Z: env.Z(), IDs: env.IDs()},
		Dendrogram: Dendrogram{
			IVL:       d.Labels,
			ICoord:    d.ICoord,
			DCoord:    d.DCoord,
			ColorList: d.Colors,
			Leaves:    d.Leaves,
		},
		Metadata: Metadata{IDAttributeMap: env.Attributes()},
	}
}

// Health is the /health response.
type Health struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}
