package analyze

import (
	"context"
	"fmt"
	"os"

	"github.com/antmicro/dram-power-analysis/internal/domain/ai"
)

// Service turns one written report file into a human-readable summary.
type Service struct {
	client ai.Client
}

func NewService(client ai.Client) *Service {
	return &Service{client: client}
}

// SummarizeFile reads a report file from disk and asks the model about it.
func (s *Service) SummarizeFile(ctx context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read report: %w", err)
	}
	return s.client.Summarize(ctx, string(data))
}
