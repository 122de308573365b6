// Package audio plays synthesized wav artifacts through the system's
// audio device using the oto/v3 library, and gates playback on output
// route readiness so wireless devices get a wake-up burst before speech.
package audio
