// Package http exposes the terminal session manager over a JSON HTTP API.
//
// Routes:
//   - GET    /health                health and counters
//   - GET    /services              tool definitions
//   - POST   /sessions              create a session -> {"id"}
//   - POST   /sessions/:id/input    {"data"}
//   - POST   /sessions/:id/resize   {"rows","cols"}
//   - DELETE /sessions/:id          close a session
//   - GET    /stats                 terminal.Snapshot
//   - POST   /invoke                {"tool_id","params"} tool dispatch
//
// Errors are returned as {"error","kind","suggestion"} with a status derived
// from the error kind (see StatusFor).
package http
