// Package notifications publishes pack creation outcomes to ntfy. When no
// topic is configured the service degrades to a no-op.
package notifications
