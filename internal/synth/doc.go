// Package synth talks to the cloud speech-synthesis service: it renders
// speak requests to audio bytes and fetches the per-region voice catalog.
package synth
