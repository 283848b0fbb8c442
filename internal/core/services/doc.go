// Package services implements the core application logic: the ingestion
// pipeline, the retrieval service and chat response assembly.
package services
