// Package domain holds planwatch's types and the rules every stage shares:
// status classification, date normalisation and the check that a portal
// page belongs to the record it was fetched for.
//
// Nothing here does I/O, and the package imports only the standard library.
// Records are keyed by the portal's opaque key; the human reference number
// is display data and the input to key healing.
package domain
