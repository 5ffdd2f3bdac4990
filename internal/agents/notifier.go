// internal/agents/notifier.go
package agents

import (
	"context"
	"time"

	"finlife-navigator/internal/common/aws"
)

// ExecutionNotice announces a confirmed lump-sum plan.
type ExecutionNotice struct {
	RequestedAt      time.Time `json:"requestedAt"`
	Risk             string    `json:"risk"`
	Goal             string    `json:"goal,omitempty"`
	Amount           float64   `json:"amount"`
	Stocks           float64   `json:"stocks"`
	Bonds            float64   `json:"bonds"`
	Cash             float64   `json:"cash"`
	ProjectedBalance *float64  `json:"projectedBalance,omitempty"`
}

type ExecutionNotifier interface {
	NotifyExecution(ctx context.Context, notice ExecutionNotice) error
}

// SNSExecutionNotifier publishes notices to an SNS topic.
type SNSExecutionNotifier struct {
	client   *aws.SNSClient
	topicARN string
}

func NewSNSExecutionNotifier(client *aws.SNSClient, topicARN string) *SNSExecutionNotifier {
	return &SNSExecutionNotifier{client: client, topicARN: topicARN}
}

func (n *SNSExecutionNotifier) NotifyExecution(ctx context.Context, notice ExecutionNotice) error {
	_, err := n.client.PublishJSON(ctx, n.topicARN, "Investment plan confirmed", notice, map[string]string{
		"risk": notice.Risk,
		"kind": "investment_execution",
	})
	return err
}
