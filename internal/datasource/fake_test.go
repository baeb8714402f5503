package datasource

import (
	"context"
	"errors"

	"github.com/roach88/dacore/internal/capability"
	"github.com/roach88/dacore/internal/dberr"
	"github.com/roach88/dacore/internal/dialect"
)

// recordingSource is an in-memory DataSource that counts transaction calls
// and models committed state as a list of values.
type recordingSource struct {
	id   string
	typ  string
	info ConnectionInfo
	caps capability.DataSourceCapabilities

	opened bool
	inTx   bool

	begins    int
	commits   int
	rollbacks int

	committed []string
	pending   []string

	failBegin    error
	failCommit   error
	failRollback error

	// commitEnds finishes the transaction even when commit fails.
	commitEnds bool
}

func newRecordingSource() *recordingSource {
	var caps capability.DataSourceCapabilities
	caps.SetSupportAll()
	return &recordingSource{id: "ds-1", typ: "FAKE", caps: caps, opened: true}
}

func (s *recordingSource) ID() string                     { return s.id }
func (s *recordingSource) Type() string                   { return s.typ }
func (s *recordingSource) ConnectionInfo() ConnectionInfo { return s.info }
func (s *recordingSource) IsOpened() bool                 { return s.opened }
func (s *recordingSource) IsInTransaction() bool          { return s.inTx }
func (s *recordingSource) Dialect() *dialect.Dialect      { return nil }
func (s *recordingSource) Open(ctx context.Context) error { s.opened = true; return nil }
func (s *recordingSource) Close() error                   { s.opened = false; return nil }

func (s *recordingSource) Capabilities() capability.DataSourceCapabilities {
	return s.caps.Clone()
}

func (s *recordingSource) Transactor(ctx context.Context) (Transactor, error) {
	return nil, errors.New("recordingSource has no transactor")
}

func (s *recordingSource) Begin(ctx context.Context) error {
	if s.inTx {
		return dberr.NewTransactionError(s.typ, "begin", "transaction already active", nil)
	}
	if s.failBegin != nil {
		return s.failBegin
	}
	s.begins++
	s.inTx = true
	return nil
}

func (s *recordingSource) Commit(ctx context.Context) error {
	if !s.inTx {
		return dberr.NewTransactionError(s.typ, "commit", "no active transaction", nil)
	}
	if s.failCommit != nil {
		if s.commitEnds {
			s.pending = nil
			s.inTx = false
		}
		return s.failCommit
	}
	s.commits++
	s.committed = append(s.committed, s.pending...)
	s.pending = nil
	s.inTx = false
	return nil
}

func (s *recordingSource) Rollback(ctx context.Context) error {
	if !s.inTx {
		return dberr.NewTransactionError(s.typ, "rollback", "no active transaction", nil)
	}
	s.rollbacks++
	s.pending = nil
	s.inTx = false
	return s.failRollback
}

// write records v as pending inside a transaction, committed otherwise.
func (s *recordingSource) write(v string) {
	if s.inTx {
		s.pending = append(s.pending, v)
		return
	}
	s.committed = append(s.committed, v)
}
