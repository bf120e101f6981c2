package eventstore

import (
	"git.home.luguber.info/inful/fwbuilder/internal/foundation/errors"
)

// Sentinel errors for session history operations. History failures never
// change the outcome of a build; callers log them and continue.
var (
	// ErrDatabaseOpenFailed indicates the SQLite database could not be opened.
	ErrDatabaseOpenFailed = errors.HistoryError("could not open session history database").Build()

	// ErrInitializeSchemaFailed indicates the database schema could not be initialized.
	ErrInitializeSchemaFailed = errors.HistoryError("failed to initialize session history schema").Build()

	// ErrEventAppendFailed indicates appending an event failed.
	ErrEventAppendFailed = errors.HistoryError("failed to append event to session history").Build()

	// ErrEventQueryFailed indicates querying events failed.
	ErrEventQueryFailed = errors.HistoryError("failed to query session history").Build()

	// ErrMarshalPayloadFailed indicates JSON marshaling of event payload failed.
	ErrMarshalPayloadFailed = errors.HistoryError("failed to marshal event payload").Build()

	// ErrPruneFailed indicates old sessions could not be removed.
	ErrPruneFailed = errors.HistoryError("failed to prune session history").Build()
)
