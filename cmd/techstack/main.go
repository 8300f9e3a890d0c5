package main

// Version information
const (
	Version    = "0.3.0"
	BuildDate  = "2026-10-17"
	CommitHash = "development"
)

func main() {
	Execute()
}
