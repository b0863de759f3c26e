package simpleartifact

import "context"

// withSession brackets a single logical operation in one store session:
// begin, run fn, commit on normal return. The session is always closed; a
// failure in fn or in commit rolls it back.
func (s *service) withSession(ctx context.Context, fn func(sess StoreSession) error) error {
	sess, err := s.sessions.Begin(ctx)
	if err != nil {
		return &SessionError{Op: "begin", Err: err}
	}

	committed := false
	defer func() {
		if !committed {
			_ = sess.Rollback(ctx)
		}
	}()

	if err := fn(sess); err != nil {
		return err
	}

	if err := sess.Commit(ctx); err != nil {
		return &SessionError{Op: "commit", Err: err}
	}
	committed = true

	return nil
}

// withItemScope runs fn inside a savepoint-scoped sub-session of sess, so a
// failing item leaves no trace in the chunk's final commit while the chunk
// session stays usable for the remaining items.
func withItemScope(ctx context.Context, sess StoreSession, fn func(sub StoreSession) error) error {
	sub, err := sess.Begin(ctx)
	if err != nil {
		return &SessionError{Op: "begin savepoint", Err: err}
	}

	if err := fn(sub); err != nil {
		_ = sub.Rollback(ctx)
		return err
	}

	if err := sub.Commit(ctx); err != nil {
		return &SessionError{Op: "release savepoint", Err: err}
	}

	return nil
}
