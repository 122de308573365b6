// Package speech coordinates the speak pipeline: fingerprint a request,
// replay a cached artifact when one exists, otherwise synthesize through
// the cloud provider, persist the result, and hand it to the player. All
// failure handling for that path lives here, folded into a small error
// taxonomy the CLI can present to the user.
package speech
