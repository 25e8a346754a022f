package queue

import (
	"context"
	"strings"
)

// Consumer runs until ctx is done or the broker connection is lost.
type Consumer interface {
	Start(ctx context.Context) error
}

type Publisher interface {
	Publish(ctx context.Context, payload []byte, routingKey string) error
}

// RoutingKey joins topic segments with dots, skipping empty ones.
func RoutingKey(segments ...string) string {
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		if s = strings.Trim(s, "."); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ".")
}
