package lending

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"credit-approval-workers/internal/models"
)

// LoanIndexMapping is applied when the loan index is created.
const LoanIndexMapping = `{
  "mappings": {
    "properties": {
      "loanId":             {"type": "long"},
      "customerId":         {"type": "long"},
      "loanAmount":         {"type": "double"},
      "interestRate":       {"type": "double"},
      "tenure":             {"type": "integer"},
      "monthlyInstallment": {"type": "double"},
      "startDate":          {"type": "date", "format": "yyyy-MM-dd"},
      "endDate":            {"type": "date", "format": "yyyy-MM-dd"}
    }
  }
}`

// Indexer writes loans into the search index.
type Indexer struct {
	es    *elasticsearch.Client
	index string
}

func NewIndexer(es *elasticsearch.Client, index string) *Indexer {
	return &Indexer{es: es, index: index}
}

// IndexLoan upserts the loan document keyed by loan id.
func (ix *Indexer) IndexLoan(ctx context.Context, loan models.Loan) error {
	body, err := json.Marshal(loan.Document())
	if err != nil {
		return fmt.Errorf("marshal loan document: %w", err)
	}

	req := esapi.IndexRequest{
		Index:      ix.index,
		DocumentID: strconv.FormatInt(loan.ID, 10),
		Body:       bytes.NewReader(body),
	}
	res, err := req.Do(ctx, ix.es)
	if err != nil {
		return fmt.Errorf("index loan %d: %w", loan.ID, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("index loan %d: %s", loan.ID, res.Status())
	}
	return nil
}
