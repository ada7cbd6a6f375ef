// Package hooks provides the extension-point registry for the request
// pipeline.
//
// Supports before_dispatch, after_dispatch, around_route_match,
// before_send_response and before_redirect. A handler implements one typed
// interface per point and is attached to all of them with a single Register
// call. Handler panics are isolated from the request.
package hooks
