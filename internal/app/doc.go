// Package app composes the application: it loads configuration,
// builds the cache, outbound clients, universe resolver, and domain
// services, assembles the chi router with the shared middleware
// chain, and owns the HTTP server lifecycle.
package app
