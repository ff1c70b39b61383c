// Package opendata downloads the planning-application CSV export from the
// open-data portal and maps each row onto a typed domain.SnapshotRow.
//
// Downloads are conditional: the ETag of the last processed export is sent
// as If-None-Match, and a 304 (or an unchanged ETag on a 200) is reported as
// domain.ErrNotModified.
package opendata
