// Package web provides the HTTP back end of the dispatcher: request and
// response records, response helpers, a method and CORS guard around
// processors, an HTTP server service built on gin, a WebSocket service
// built on gorilla/websocket, and default file and JSON handlers.
//
// Every inbound HTTP request becomes an application request whose path
// is the URL path and whose input carries the method, client address,
// headers and body. When dispatch fails, the services dispatch a second
// request at ExceptionPath carrying the error text in the "exception"
// variable, so an exception processor can render the failure.
package web
