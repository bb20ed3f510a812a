package stream

// SubscriberCount exposes a Subject's subscriber count to the external tests.
func SubscriberCount[T any](s *Subject[T]) int {
	return s.subscriberCount()
}
