// internal/workers/lending/create-loan/config.go
package createloan

import (
	"time"

	"credit-approval-workers/internal/common/config"
)

type Config struct {
	Timeout time.Duration
	// IndexLoans pushes every created loan into the search index.
	IndexLoans bool
}

func LoadConfig(wc config.WorkerConfig, lc config.LendingConfig) *Config {
	timeout := config.GetDuration(wc.Timeout)
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Config{
		Timeout:    timeout,
		IndexLoans: lc.IndexLoans,
	}
}
