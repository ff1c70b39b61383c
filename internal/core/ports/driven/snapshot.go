package driven

import (
	"context"

	"github.com/custodia-labs/planwatch/internal/core/domain"
)

// Snapshot is a downloaded and mapped open-data export.
type Snapshot struct {
	// Identity is the content identity (ETag) of the download, if any.
	Identity string

	// Rows are the mapped rows in file order.
	Rows []domain.SnapshotRow

	// Rejected counts rows that could not be mapped.
	Rejected int
}

// SnapshotSource downloads the authoritative snapshot.
type SnapshotSource interface {
	// Fetch downloads and maps the snapshot. If knownIdentity is non-empty
	// and the source reports the same identity, it returns domain.ErrNotModified.
	// Any transport or structural failure of the whole file is returned as an error.
	Fetch(ctx context.Context, knownIdentity string) (*Snapshot, error)
}

// WatermarkStore persists the identity of the last fully processed snapshot.
type WatermarkStore interface {
	// SnapshotIdentity returns the stored identity, or "" if none.
	SnapshotIdentity() string

	// SetSnapshotIdentity persists a new identity.
	SetSnapshotIdentity(identity string) error
}
