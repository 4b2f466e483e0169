// Package http serves the administrative API for widgets, themes and areas.
//
// Domain errors map onto status codes: validation failures are 400, missing
// resources 404, conflicts 409 and everything else 500. Manifest listings
// carry a weak ETag and honor If-None-Match.
package http
