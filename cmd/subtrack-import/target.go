package main

import (
	"errors"

	"subtrack/internal/config"
)

var errNotPersisted = errors.New("the memory backend is discarded when the import exits; set DATA_BACKEND=sqlite or AMQP_URL")

// checkTarget rejects imports that would only reach a process-local store.
func checkTarget(backend string, queue bool) error {
	if !queue && backend == config.BackendMemory {
		return errNotPersisted
	}
	return nil
}
