// Package app contains the core application logic: loading build files,
// synthesizing and validating the rule graph, rendering the resulting plan
// and optionally executing fetch plans. It is decoupled from any specific
// entrypoint like a CLI.
package app
