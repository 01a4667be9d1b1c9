package queries

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/elastic/go-elasticsearch/v8/esapi"

	"credit-approval-workers/internal/models"
)

var (
	ErrUnknownSearchType = errors.New("unknown search type")
	ErrMissingIndex      = errors.New("index name is required")
	ErrMissingFilter     = errors.New("missing required filter")
)

const (
	DefaultSize = 20
	MaxSize     = 100
)

// LoanSearch defines the structure of a search request against the loan index
type LoanSearch struct {
	Index      string
	SearchType models.SearchType
	Filters    map[string]interface{}
	From       int
	Size       int
}

// BuildQuery builds an Elasticsearch search request for the given search type
func BuildQuery(ls LoanSearch) (*esapi.SearchRequest, error) {
	if ls.Index == "" {
		return nil, ErrMissingIndex
	}

	var (
		queryBody map[string]interface{}
		err       error
	)
	switch ls.SearchType {
	case models.SearchTypeCustomerLoans:
		queryBody, err = buildCustomerLoansQuery(ls.Filters)
	case models.SearchTypeActiveLoans:
		queryBody = buildActiveLoansQuery(ls.Filters)
	case models.SearchTypeRateRange:
		queryBody, err = buildRateRangeQuery(ls.Filters)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownSearchType, ls.SearchType)
	}
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(queryBody)
	if err != nil {
		return nil, fmt.Errorf("marshal query: %w", err)
	}

	from, size := normalizePage(ls.From, ls.Size)
	return &esapi.SearchRequest{
		Index: []string{ls.Index},
		Body:  bytes.NewReader(body),
		From:  &from,
		Size:  &size,
	}, nil
}

func normalizePage(from, size int) (int, int) {
	if from < 0 {
		from = 0
	}
	if size < 1 {
		size = DefaultSize
	}
	if size > MaxSize {
		size = MaxSize
	}
	return from, size
}

// buildCustomerLoansQuery lists every indexed loan of one customer
func buildCustomerLoansQuery(filters map[string]interface{}) (map[string]interface{}, error) {
	customerID, ok := number(filters["customerId"])
	if !ok {
		return nil, fmt.Errorf("%w: customerId", ErrMissingFilter)
	}
	return map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"filter": []interface{}{
					term("customerId", int64(customerID)),
				},
			},
		},
		"sort": []map[string]interface{}{{"loanId": "asc"}},
	}, nil
}

// buildActiveLoansQuery matches loans whose end date lies after today,
// optionally narrowed to one customer
func buildActiveLoansQuery(filters map[string]interface{}) map[string]interface{} {
	filterClauses := []interface{}{
		map[string]interface{}{
			"range": map[string]interface{}{
				"endDate": map[string]interface{}{"gt": "now/d"},
			},
		},
	}
	if customerID, ok := number(filters["customerId"]); ok {
		filterClauses = append(filterClauses, term("customerId", int64(customerID)))
	}

	return map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{"filter": filterClauses},
		},
		"sort": []map[string]interface{}{{"endDate": "asc"}, {"loanId": "asc"}},
	}
}

// buildRateRangeQuery matches loans inside an interest rate band; at least
// one bound is required
func buildRateRangeQuery(filters map[string]interface{}) (map[string]interface{}, error) {
	bounds := map[string]interface{}{}
	if minRate, ok := number(filters["minRate"]); ok {
		bounds["gte"] = minRate
	}
	if maxRate, ok := number(filters["maxRate"]); ok {
		bounds["lte"] = maxRate
	}
	if len(bounds) == 0 {
		return nil, fmt.Errorf("%w: minRate or maxRate", ErrMissingFilter)
	}

	return map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"filter": []interface{}{
					map[string]interface{}{
						"range": map[string]interface{}{"interestRate": bounds},
					},
				},
			},
		},
		"sort": []map[string]interface{}{{"interestRate": "asc"}, {"loanId": "asc"}},
	}, nil
}

func term(field string, value interface{}) map[string]interface{} {
	return map[string]interface{}{
		"term": map[string]interface{}{field: value},
	}
}

func number(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
