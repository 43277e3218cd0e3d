// Package token discovers and validates the bearer credential a process
// uses for upstream API calls. Discovery walks a ranked source list: files
// served next to the application, then the bootstrap token API, then a
// static fallback baked into configuration. The first source that yields a
// structurally valid, unexpired credential wins.
package token
