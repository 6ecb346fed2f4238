package service

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// balance
	ErrInvalidAsset          = errors.New("error invalid asset")
	ErrHoldingNotFound       = errors.New("error asset not found in user's balance")
	ErrInsufficientAmount    = errors.New("error insufficient amount to remove")
	ErrNothingToRebalance    = errors.New("error nothing to rebalance")
	ErrUnknownAssetInTargets = errors.New("error target percentages include assets not in user's balance")
	ErrInvalidPercentages    = errors.New("error target percentages must each be within (0, 100) and sum to 100")
	ErrRebalanceConflict     = errors.New("error balance changed while rebalancing, retry")

	// rates, retryable
	ErrRateUnavailable = errors.New("error rate provider unavailable")

	// auth
	ErrUserAlreadyExists  = errors.New("error user already exists")
	ErrInvalidCredentials = errors.New("error invalid credentials")
	ErrTokenRevoked       = errors.New("error token revoked")
	ErrInvalidToken       = errors.New("error invalid token")
)

// UnsupportedAssetValueError names the assets whose current value is zero and
// therefore cannot take part in a rebalance.
type UnsupportedAssetValueError struct {
	SearchIDs []string
}

func (e *UnsupportedAssetValueError) Error() string {
	return fmt.Sprintf(
		"cannot rebalance, the following assets are not supported or invalid: %s",
		strings.Join(e.SearchIDs, ","),
	)
}
