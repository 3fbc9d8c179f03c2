package dendrex

import "github.com/kailas-cloud/dendrex/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrSchema        = domain.ErrSchema
	ErrVectorization = domain.ErrVectorization
	ErrEmptyCorpus   = domain.ErrEmptyCorpus
	ErrClustering    = domain.ErrClustering
)
