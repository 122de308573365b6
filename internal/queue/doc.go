// Package queue provides the serial background executors that order all
// persistence and speech work. Each executor runs a single worker, so tasks
// never interleave and always complete in submission order.
package queue
