package ecsmetrics

import "os"

func processPID() int {
	return os.Getpid()
}
