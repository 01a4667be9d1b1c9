// pkg/registry/defaults.go
package registry

type schema = map[string]interface{}

func object(required []string, props schema) schema {
	s := schema{"type": "object", "properties": props}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

func integer() schema { return schema{"type": "integer"} }
func number() schema  { return schema{"type": "number"} }

var loanRequestSchema = object(
	[]string{"customerId", "loanAmount", "interestRate", "tenure"},
	schema{
		"customerId":   schema{"type": "integer", "minimum": 1},
		"loanAmount":   number(),
		"interestRate": number(),
		"tenure":       integer(),
	},
)

// Default returns the activities hosted by the worker manager.
func Default() *ActivityRegistry {
	return &ActivityRegistry{
		Version:     "1.0.0",
		LastUpdated: "2026-10-01T00:00:00Z",
		Activities: []Activity{
			{
				ID:                   "register-customer",
				DisplayName:          "Register Customer",
				Description:          "Creates a customer and derives the approved limit from monthly income",
				Category:             "lending",
				Version:              "1.0.0",
				TaskType:             "register-customer",
				ImplementationStatus: StatusCompleted,
				InputSchema: object(
					[]string{"firstName", "lastName", "age", "monthlyIncome", "phoneNumber"},
					schema{
						"firstName":     schema{"type": "string", "minLength": 1, "maxLength": 100},
						"lastName":      schema{"type": "string", "minLength": 1, "maxLength": 100},
						"age":           schema{"type": "integer", "minimum": 0},
						"monthlyIncome": schema{"type": "number", "minimum": 0},
						"phoneNumber":   schema{"type": "string", "pattern": `^\+?[0-9]{7,15}$`},
						"email":         schema{"type": "string", "format": "email"},
					},
				),
				OutputSchema: object([]string{"customerId", "approvedLimit"}, schema{
					"customerId":    integer(),
					"approvedLimit": number(),
				}),
				ErrorCodes: []string{"DUPLICATE_CUSTOMER", "INPUT_VALIDATION_FAILED", "DATABASE_INSERT_FAILED"},
				Timeout:    "10s",
				Retries:    3,
				Workflows:  []string{"customer-onboarding"},
				Tags:       []string{"lending", "customer"},
			},
			{
				ID:                   "check-eligibility",
				DisplayName:          "Check Loan Eligibility",
				Description:          "Evaluates a loan request against affordability caps and the credit score",
				Category:             "lending",
				Version:              "1.0.0",
				TaskType:             "check-eligibility",
				ImplementationStatus: StatusCompleted,
				InputSchema:          loanRequestSchema,
				OutputSchema: object([]string{"customerId", "approval", "message"}, schema{
					"customerId": integer(),
					"approval":   schema{"type": "boolean"},
					"message":    schema{"type": "string"},
				}),
				ErrorCodes: []string{"CUSTOMER_NOT_FOUND", "INVALID_LOAN_REQUEST", "QUERY_EXECUTION_FAILED"},
				Timeout:    "10s",
				Retries:    3,
				Workflows:  []string{"loan-origination"},
				Tags:       []string{"lending", "credit"},
			},
			{
				ID:                   "create-loan",
				DisplayName:          "Create Loan",
				Description:          "Re-evaluates and persists an approved loan in one transaction",
				Category:             "lending",
				Version:              "1.0.0",
				TaskType:             "create-loan",
				ImplementationStatus: StatusCompleted,
				InputSchema:          loanRequestSchema,
				OutputSchema: object([]string{"customerId", "loanApproved", "message"}, schema{
					"loanId":       schema{"type": []interface{}{"integer", "null"}},
					"customerId":   integer(),
					"loanApproved": schema{"type": "boolean"},
					"message":      schema{"type": "string"},
				}),
				ErrorCodes: []string{"CUSTOMER_NOT_FOUND", "INVALID_LOAN_REQUEST", "DATABASE_INSERT_FAILED"},
				Timeout:    "15s",
				Retries:    3,
				Workflows:  []string{"loan-origination"},
				Tags:       []string{"lending", "loan"},
			},
			{
				ID:                   "send-loan-notification",
				DisplayName:          "Send Loan Notification",
				Description:          "Notifies the customer of a loan decision by SMS and e-mail",
				Category:             "communication",
				Version:              "1.0.0",
				TaskType:             "send-loan-notification",
				ImplementationStatus: StatusCompleted,
				InputSchema: object([]string{"customerId", "notificationType"}, schema{
					"customerId":       schema{"type": "integer", "minimum": 1},
					"loanId":           schema{"type": []interface{}{"integer", "null"}},
					"notificationType": schema{"type": "string", "enum": []interface{}{"loan_approved", "loan_rejected"}},
					"metadata":         schema{"type": "object"},
				}),
				OutputSchema: object([]string{"notificationId", "status"}, schema{
					"notificationId": schema{"type": "string"},
					"status":         schema{"type": "string", "enum": []interface{}{"sent", "failed", "disabled"}},
				}),
				ErrorCodes: []string{"TEMPLATE_NOT_FOUND", "QUERY_EXECUTION_FAILED", "INPUT_VALIDATION_FAILED"},
				Timeout:    "10s",
				Retries:    3,
				Workflows:  []string{"loan-origination"},
				Tags:       []string{"communication", "sms", "email"},
			},
			{
				ID:                   "query-postgresql",
				DisplayName:          "Query Loans",
				Description:          "Runs a registered read query against the lending database",
				Category:             "data-access",
				Version:              "1.0.0",
				TaskType:             "query-postgresql",
				ImplementationStatus: StatusCompleted,
				InputSchema: object([]string{"queryType"}, schema{
					"queryType":  schema{"type": "string", "enum": []interface{}{"loan_details", "customer_loans", "customer_profile"}},
					"loanId":     integer(),
					"customerId": integer(),
				}),
				OutputSchema: object([]string{"data", "rowCount"}, schema{
					"rowCount":           integer(),
					"queryExecutionTime": integer(),
				}),
				ErrorCodes: []string{"INVALID_QUERY_TYPE", "LOAN_NOT_FOUND", "CUSTOMER_NOT_FOUND", "QUERY_EXECUTION_FAILED", "QUERY_TIMEOUT"},
				Timeout:    "30s",
				Retries:    3,
				Workflows:  []string{"loan-servicing"},
				Tags:       []string{"data-access", "postgresql"},
			},
			{
				ID:                   "query-elasticsearch",
				DisplayName:          "Search Loans",
				Description:          "Searches the loan index by customer, activity or interest band",
				Category:             "data-access",
				Version:              "1.0.0",
				TaskType:             "query-elasticsearch",
				ImplementationStatus: StatusCompleted,
				InputSchema: object([]string{"searchType"}, schema{
					"searchType": schema{"type": "string", "enum": []interface{}{"customer_loans", "active_loans", "rate_range"}},
					"filters":    schema{"type": "object"},
					"from":       schema{"type": "integer", "minimum": 0},
					"size":       schema{"type": "integer", "minimum": 0},
				}),
				OutputSchema: object([]string{"loans", "totalHits"}, schema{
					"loans":     schema{"type": "array"},
					"totalHits": integer(),
				}),
				ErrorCodes: []string{"INVALID_QUERY_TYPE", "SEARCH_QUERY_FAILED", "INDEX_NOT_FOUND", "ELASTICSEARCH_CONNECTION_FAILED", "TIMEOUT_ERROR"},
				Timeout:    "10s",
				Retries:    3,
				Workflows:  []string{"loan-servicing"},
				Tags:       []string{"data-access", "elasticsearch"},
			},
		},
	}
}
