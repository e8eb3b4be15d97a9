// Package core provides the business logic of the form moderation console.
//
// The package is independent of any transport or storage engine. It is used
// by the HTTP server, the formctl CLI and tests through [Service], backed by
// any implementation of [Store].
//
// # Submissions
//
// Stored submissions come in two shapes. Legacy submissions keep answers in
// a flat data map; current submissions keep them per contributor in
// userContributions, with field metadata recording labels and section
// paths. [Submission.Payload] discriminates the two, and [BuildView]
// handles each variant to produce a [SubmissionView]:
//
//   - Contributions are grouped by joined section path, with unsectioned
//     fields under "General Information".
//   - Legacy data is labelled from the template's element tree (top level
//     and one nested level) and formatted by element type.
//
// Reconciliation is total over a batch: a missing template or user yields
// "Template Not Found" or "Unknown User" instead of an error.
//
// # Export
//
// [ExportRows] flattens submissions in summary mode (one row per
// submission) or detailed mode (one row per contributor per field).
// [EncodeCSV] and [EncodeXLSX] render the rows. Templates for a batch are
// fetched in one store call.
//
// # Moderation
//
// Approve, reject and delete take an explicit [Actor] and append an
// [Activity] record after each write. Bulk variants run sequentially, stop
// at the first failure without rolling back, and return a [BulkResult] with
// one outcome per id.
//
// # Error Handling
//
// Technical errors are mapped to user-facing messages with support codes by
// [MapError]: DB0xx store errors, VAL0xx validation, NF0xx missing
// documents, EXP0xx export, AUTH0xx tokens, REQ0xx request lifecycle.
package core
