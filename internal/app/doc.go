// Package app contains the core application logic. It defines the main App
// struct, its configuration, and the page lifecycle: load the page, bootstrap
// it, replay or stream narrative steps, and write the result. It is
// decoupled from any specific entrypoint like a CLI or server.
package app
