package user

import "context"

// Repository reads the account fields this service consumes. Returns
// (nil, nil) when the user does not exist.
type Repository interface {
	GetByID(ctx context.Context, id uint) (*User, error)

	// ListDigestCandidates returns users who have not opted out of email,
	// in stable ID order, for the periodic digest sweep.
	ListDigestCandidates(ctx context.Context, limit, offset int) ([]*User, error)
}
