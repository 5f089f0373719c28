// Command depalign resolves recommended dependency versions from a
// version recommendation service.
//
// Depalign loads flat alignment properties, asks the configured service for
// the best matching version of each requested group:artifact:version, and
// prints the aligned set for build tooling to consume.
//
// Install:
//
//	go install github.com/michalovjan/depalign/cmd/depalign@latest
//
// Usage:
//
//	depalign lookup --properties ./depalign.properties org.acme:widget:1.0
package main
