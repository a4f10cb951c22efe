// Package events decouples the components that request background work
// from the ones that perform it. The HTTP layer emits a TaskRequestEvent
// after an upload is stored; the task package subscribes a handler for
// that event type and turns it into a persisted task.
package events
