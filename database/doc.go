// Package database manages the Bun connection for the CMS: configuration
// loading, driver selection, pool tuning, health checks and reconnects, query
// hooks and versioned migrations of registered models.
package database
