package wire

import "thoth-writer-api/internal/infrastructure/messaging"

// Worker 整书任务 worker 的依赖
type Worker struct {
	Consumer *messaging.Consumer
}
