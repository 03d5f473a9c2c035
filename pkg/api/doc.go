// Package api holds the JSON-over-HTTP surface of the experiment engine:
// error mapping, request decoding and response writing shared by the
// handlers in the handlers subpackage.
package api
