package repo

import (
	"context"
	"time"

	"github.com/Skotchmaster/plugtech/internal/models"
	"github.com/Skotchmaster/plugtech/internal/tokens"
)

func (r *GormRepo) SaveRefreshToken(ctx context.Context, rt *models.RefreshToken) error {
	return r.DB.WithContext(ctx).Create(rt).Error
}

// RefreshActive reports whether the jti exists, is not revoked and has not
// expired.
func (r *GormRepo) RefreshActive(ctx context.Context, jti string) (bool, error) {
	var rt models.RefreshToken
	res := r.DB.WithContext(ctx).Where("jti = ?", jti).Limit(1).Find(&rt)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	return !rt.Revoked && rt.ExpiresAt > time.Now().Unix(), nil
}

// RevokeRefreshByJTI flips an active token to revoked and reports whether
// this call did it. Only one of several concurrent callers sees true.
func (r *GormRepo) RevokeRefreshByJTI(ctx context.Context, jti string) (bool, error) {
	res := r.DB.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("jti = ? AND revoked = ?", jti, false).
		Update("revoked", true)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *GormRepo) RevokeRefreshToken(ctx context.Context, raw string) error {
	return r.DB.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("token = ?", tokens.Sha256Hex(raw)).
		Update("revoked", true).Error
}
