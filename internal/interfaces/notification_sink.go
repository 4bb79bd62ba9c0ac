package interfaces

// NotificationSink receives human-readable progress from cascade operations.
// Calls are fire-and-forget: implementations must not block the caller for
// long and their outcome never changes the result of an operation.
type NotificationSink interface {
	Report(message string)
	ReportError(message string)
	Clear()
}
