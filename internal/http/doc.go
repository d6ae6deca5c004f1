// Package http provides HTTP handlers and middleware for the coach scheduler API.
//
// Every route except GET /healthz requires an `Authorization: Bearer <jwt>`
// header whose subject is the coach id. The router exposes:
//   - GET /clients?sort=&order=, POST /clients: the coach's client list and
//     client provisioning (`api.ProvisionClientRequest`).
//   - GET /clients/{clientID}, DELETE /clients/{clientID}: one client; deletion
//     cascades to sessions and weight logs.
//   - GET|POST /clients/{clientID}/weights: weight logs, newest first.
//   - GET /clients/{clientID}/sessions?from=&to=, POST /clients/{clientID}/sessions,
//     POST /clients/{clientID}/sessions/batch: session listing and creation. A
//     partially created batch answers 207 with the created subset.
//   - GET /clients/{clientID}/week?start=: the seven day buckets of the week
//     containing start (today by default).
//   - GET /clients/{clientID}/calendar.ics?from=&to=: iCalendar export.
//   - PATCH /sessions/{sessionID}, DELETE /sessions/{sessionID},
//     POST /sessions/{sessionID}/duplicate: edits, idempotent deletion and
//     recurrence duplication.
//
// Payloads are defined in package api so the remote client shares them.
// Error bodies are `api.ErrorResponse` with French messages.
package http
