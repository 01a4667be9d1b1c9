// internal/common/camunda/client.go
package camunda

import (
	"context"
	"fmt"
	"strings"
	"time"

	appconfig "credit-approval-workers/internal/common/config"
	"credit-approval-workers/internal/common/errors"

	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
)

// Client wraps the Zeebe gRPC client that the loan workers poll through.
type Client struct {
	client   zbc.Client
	timeout  time.Duration
	retry    RetryPolicy
	topology func(context.Context) (*pb.TopologyResponse, error)
}

// RetryPolicy bounds the backoff applied to transient gateway failures.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

var DefaultRetryPolicy = RetryPolicy{
	MaxRetries: 3,
	BaseDelay:  time.Second,
	MaxDelay:   10 * time.Second,
}

// Topology summarises the cluster as seen from the gateway.
type Topology struct {
	Brokers         int
	ClusterSize     int
	Partitions      int
	LeaderlessParts int
	GatewayVersion  string
}

// Healthy reports whether every partition has a leader.
func (t *Topology) Healthy() bool {
	return t.Brokers > 0 && t.LeaderlessParts == 0
}

// NewClient dials the gateway from the camunda config section and verifies
// it with a topology request.
func NewClient(cfg appconfig.CamundaConfig) (*Client, error) {
	zeebeClient, err := zbc.NewClient(&zbc.ClientConfig{
		GatewayAddress:         cfg.BrokerAddress,
		UsePlaintextConnection: cfg.Plaintext,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Zeebe client: %w", err)
	}

	timeout := appconfig.GetDuration(cfg.RequestTimeout)
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := &Client{
		client:  zeebeClient,
		timeout: timeout,
		retry:   DefaultRetryPolicy,
		topology: func(ctx context.Context) (*pb.TopologyResponse, error) {
			return zeebeClient.NewTopologyCommand().Send(ctx)
		},
	}

	if _, err := c.Topology(context.Background()); err != nil {
		zeebeClient.Close()
		return nil, fmt.Errorf("failed to connect to Zeebe broker at %s: %w", cfg.BrokerAddress, err)
	}
	return c, nil
}

// GetClient returns the raw Zeebe client for job polling.
func (c *Client) GetClient() zbc.Client {
	return c.client
}

func (c *Client) Close() error {
	return c.client.Close()
}

// Topology fetches the cluster topology, retrying transient failures.
func (c *Client) Topology(ctx context.Context) (*Topology, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := withRetry(ctx, c.retry, "topology", c.topology)
	if err != nil {
		return nil, err
	}

	t := &Topology{
		Brokers:        len(resp.GetBrokers()),
		ClusterSize:    int(resp.GetClusterSize()),
		Partitions:     int(resp.GetPartitionsCount()),
		GatewayVersion: resp.GetGatewayVersion(),
	}
	leaders := make(map[int32]bool)
	for _, broker := range resp.GetBrokers() {
		for _, p := range broker.GetPartitions() {
			if p.GetRole() == pb.Partition_LEADER && p.GetHealth() == pb.Partition_HEALTHY {
				leaders[p.GetPartitionId()] = true
			}
		}
	}
	t.LeaderlessParts = t.Partitions - len(leaders)
	return t, nil
}

// HealthCheck fails when the gateway is unreachable or a partition has no
// healthy leader.
func (c *Client) HealthCheck(ctx context.Context) error {
	t, err := c.Topology(ctx)
	if err != nil {
		return fmt.Errorf("zeebe health check failed: %w", err)
	}
	if !t.Healthy() {
		return fmt.Errorf("zeebe health check failed: %d of %d partitions without a healthy leader",
			t.LeaderlessParts, t.Partitions)
	}
	return nil
}

// withRetry runs a gateway command with exponential backoff. Only transient
// errors are retried; the final error is mapped to a StandardError.
func withRetry[T any](ctx context.Context, policy RetryPolicy, operation string, command func(context.Context) (T, error)) (T, error) {
	var zero T
	delay := policy.BaseDelay
	for attempt := 0; ; attempt++ {
		result, err := command(ctx)
		if err == nil {
			return result, nil
		}
		if !isRetryableZeebeError(err) || attempt == policy.MaxRetries {
			return zero, mapZeebeError(err, operation, attempt)
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return zero, fmt.Errorf("operation %s cancelled after %d attempts: %w", operation, attempt+1, ctx.Err())
		}
		if delay *= 2; delay > policy.MaxDelay {
			delay = policy.MaxDelay
		}
	}
}

var retryablePhrases = []string{
	"connection refused",
	"connection reset",
	"timeout",
	"deadline exceeded",
	"unavailable",
	"unreachable",
	"broken pipe",
}

func isRetryableZeebeError(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, phrase := range retryablePhrases {
		if strings.Contains(msg, phrase) {
			return true
		}
	}
	return false
}

func mapZeebeError(err error, operation string, attempt int) *errors.StandardError {
	detail := fmt.Sprintf("zeebe %s failed", operation)
	if attempt > 0 {
		detail += fmt.Sprintf(" after %d attempts", attempt)
	}
	wrapped := fmt.Errorf("%s: %w", detail, err)

	lower := strings.ToLower(err.Error())
	switch {
	case strings.Contains(lower, "timeout"), strings.Contains(lower, "deadline exceeded"):
		return errors.NewTimeoutError("zeebe", wrapped)
	case strings.Contains(lower, "permission denied"), strings.Contains(lower, "unauthenticated"):
		stdErr := errors.NewExternalServiceError("zeebe", wrapped)
		stdErr.Retryable = false
		return stdErr
	default:
		return errors.NewExternalServiceError("zeebe", wrapped)
	}
}
