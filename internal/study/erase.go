package study

import "context"

// EraseAccount deletes every row the user owns, clears their cached usage
// counters, and finally removes the identity from the auth provider. The
// data wipe commits before the identity call: if the provider delete fails
// the account row is already unusable and the caller gets the error.
func (s *Service) EraseAccount(ctx context.Context, userID string) error {
	if err := s.repo.EraseUser(ctx, userID); err != nil {
		return err
	}

	if s.rdb != nil {
		pattern := "usage:" + userID + ":*"
		iter := s.rdb.Scan(ctx, 0, pattern, 100).Iterator()
		for iter.Next(ctx) {
			if err := s.rdb.Del(ctx, iter.Val()).Err(); err != nil {
				s.log.Warn("usage key delete failed", "key", iter.Val(), "err", err)
			}
		}
		if err := iter.Err(); err != nil {
			s.log.Warn("usage key scan failed", "user_id", userID, "err", err)
		}
	}

	if err := s.verifier.DeleteUser(ctx, userID); err != nil {
		s.log.Error("auth identity delete failed", "user_id", userID, "err", err)
		return err
	}

	s.log.Info("account erased", "user_id", userID)
	return nil
}
