// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// Services are pure Go with no database drivers or HTTP clients;
// those live behind the driven ports.
package services
