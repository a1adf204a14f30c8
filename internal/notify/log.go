package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/JakeFAU/careerwatch/internal/crawler"
)

// LogNotifier writes postings to the logger instead of a chat. Used for dry runs.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier builds a LogNotifier.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger}
}

// Notify logs the posting and always succeeds.
func (n *LogNotifier) Notify(_ context.Context, posting crawler.JobPosting, message string) error {
	n.logger.Info("job posting",
		zap.String("company", posting.Company),
		zap.String("title", posting.Title),
		zap.String("posted", posting.PostedDate),
		zap.String("location", posting.Location),
		zap.String("apply_link", posting.ApplyLink),
		zap.String("message", message),
	)
	return nil
}
