// internal/workers/data-access/query-elasticsearch/models.go
package queryelasticsearch

import "credit-approval-workers/internal/models"

type Input struct {
	SearchType string                 `json:"searchType"`
	Filters    map[string]interface{} `json:"filters,omitempty"`
	From       int                    `json:"from,omitempty"`
	Size       int                    `json:"size,omitempty"`
}

type Output struct {
	Loans     []models.LoanDocument `json:"loans"`
	TotalHits int64                 `json:"totalHits"`
	MaxScore  float64               `json:"maxScore"`
	Took      int64                 `json:"took"` // milliseconds
}
