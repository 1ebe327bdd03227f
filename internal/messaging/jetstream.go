package messaging

import (
	"errors"

	"github.com/nats-io/nats.go"
)

const playoutStream = "PLAYOUT"

// EnsureStreams creates (or validates) the stream carrying schedule
// notifications on playout.schedule.>, consumed by the stream runner.
func EnsureStreams(js nats.JetStreamContext) error {
	if _, err := js.StreamInfo(playoutStream); err != nil {
		if !errors.Is(err, nats.ErrStreamNotFound) {
			return err
		}
		if _, addErr := js.AddStream(&nats.StreamConfig{
			Name:      playoutStream,
			Subjects:  []string{"playout.schedule.>"},
			Retention: nats.LimitsPolicy,
			Storage:   nats.FileStorage,
			Replicas:  1,
		}); addErr != nil {
			return addErr
		}
	}
	return nil
}
