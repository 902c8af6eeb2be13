package marketplace

import (
	"context"

	"github.com/dukerupert/toolshub/internal/model"
	"github.com/dukerupert/toolshub/internal/opstate"
	"github.com/dukerupert/toolshub/internal/rpc"
)

// Credentials are the login details for a rented tool. Nil means the owner
// has not set them yet.
type Credentials struct {
	Login    *string
	Password *string
}

// RevealCredentials returns the credentials of a rented tool from the
// loaded rented-by-me or rented-out collections. Only rentals the backend
// already let this user see can be found.
func (m *Marketplace) RevealCredentials(assetID int64) (Credentials, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, coll := range [][]model.RentedTool{m.rentedByMe, m.rentedOut} {
		if i := indexAsset(coll, assetID); i >= 0 {
			return Credentials{Login: coll[i].Login, Password: coll[i].Password}, nil
		}
	}
	return Credentials{}, ErrAssetNotFound
}

// UpdateCredentials sets the login and password of one of the owner's
// rented-out tools. The local copy changes only after the backend confirms,
// and takes the values the backend returned.
func (m *Marketplace) UpdateCredentials(ctx context.Context, assetID int64, login, password string) error {
	m.mu.RLock()
	owned := indexAsset(m.rentedOut, assetID) >= 0
	m.mu.RUnlock()
	if !owned {
		return ErrAssetNotFound
	}

	return m.guard(opstate.UpdateCredentials, "updating credentials", func() error {
		resp, err := m.backend.UpdateRentedToolCredentials(ctx, rpc.UpdateCredentialsRequest{
			RentedToolID: assetID,
			Login:        login,
			Password:     password,
		})
		if err != nil {
			return err
		}

		m.mu.Lock()
		defer m.mu.Unlock()
		if i := indexAsset(m.rentedOut, assetID); i >= 0 {
			l, p := resp.Login, resp.Password
			m.rentedOut[i].Login = &l
			m.rentedOut[i].Password = &p
		}
		return nil
	})
}

func indexAsset(coll []model.RentedTool, id int64) int {
	for i := range coll {
		if coll[i].ID == id {
			return i
		}
	}
	return -1
}
