// Package domain contains the core business entities shared across the
// embedx services and adapters.
package domain
