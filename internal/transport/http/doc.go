// Package http implements the HTTP handlers for the TrawlScope API.
// It is a thin layer between the chi router and the service layer: handlers
// parse and validate requests, call services, and render responses.
//
// # Request Flow
//
// A typical request flows through these layers:
//
//	HTTP Request → Chi Router → Middleware → Handler → Service → SnapshotStore
//	                                              ↓
//	HTTP Response ← Handler ← Service Response ←─┘
//
// # Handlers
//
//	SpeciesHandler    - species list and per-species annual/seasonal series
//	DatasetHandler    - dataset availability and snapshot file status
//	OperationsHandler - pipeline run control: refresh, status, history
//	HealthHandler     - liveness, readiness, version, system stats
//
// Successful responses use a uniform envelope:
//
//	{
//	    "status": "success",
//	    "data":   ...,
//	    "count":  3
//	}
//
// # Error Handling
//
// Errors are rendered as RFC 7807 Problem Details by the shared error
// handler in internal/errors:
//
//	{
//	    "type": "/errors/not-found",
//	    "title": "Species Not Found",
//	    "status": 404,
//	    "detail": "unknown species: kraken",
//	    "instance": "/api/species/kraken/annual"
//	}
//
// # Testing
//
// Handlers are tested with httptest against real chi routers and seeded
// services; the run manager is faked where asynchronous behavior would
// make assertions racy.
package http
