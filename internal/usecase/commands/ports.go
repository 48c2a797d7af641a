package commands

// EventPublisher is the fan-out side channel. Delivery is best effort and
// fire-and-forget: implementations must never block the caller on broker
// round-trips and must swallow (log) publish failures. Nothing in the claim
// or batch-issue path may depend on a publish succeeding.
type EventPublisher interface {
	Publish(topic, event string, payload any)
}
