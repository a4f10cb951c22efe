// Package api exposes tracked items, document uploads, generated study
// content and reminder schedules over HTTP. Handlers translate requests into
// service calls and map service errors onto status codes; every protected
// route runs behind bearer-token authentication.
package api
