// Package notifier delivers relay messages to chat destinations.
//
// Deliver is synchronous so a dispatch tick can account for every send.
// All deliveries share one token-bucket limiter; failed attempts are retried
// with jittered exponential backoff and each attempt has its own deadline.
// A short in-memory history of recent deliveries backs the /status command.
package notifier
