// Package http contains the chi HTTP handlers for the public API:
// universe resolution, price history, earnings, macro events, and the
// correlation endpoints. Handlers validate requests, delegate to the
// services layer, and render responses or RFC 7807 problems.
package http
