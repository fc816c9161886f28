package wire

import (
	"fmt"
	"os"

	"github.com/google/uuid"

	"thoth-writer-api/internal/infrastructure/messaging"
)

func consumerGroup(prefix string) messaging.ConsumerGroup {
	if prefix == "" {
		return messaging.ConsumerGroupBookWorker
	}
	return messaging.ConsumerGroup(prefix + "-" + string(messaging.ConsumerGroupBookWorker))
}

// consumerName 同一主机多实例时追加随机后缀
func consumerName() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "worker"
	}
	return fmt.Sprintf("%s-%s", host, uuid.NewString()[:8])
}
