// internal/workers/data-access/query-elasticsearch/config.go
package queryelasticsearch

import (
	"time"

	"credit-approval-workers/internal/common/config"
)

type Config struct {
	Timeout time.Duration
	Index   string
}

func LoadConfig(wc config.WorkerConfig, es config.ElasticsearchConfig) *Config {
	timeout := config.GetDuration(wc.Timeout)
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	index := es.LoanIndex
	if index == "" {
		index = "loans"
	}
	return &Config{Timeout: timeout, Index: index}
}
