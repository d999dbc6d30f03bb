package services

import (
	"time"

	"voucher-market/internal/models"
)

// Reason explains why a voucher cannot be redeemed
type Reason string

const (
	ReasonNone             Reason = ""
	ReasonNotFound         Reason = "not_found"
	ReasonNotActive        Reason = "not_active"
	ReasonNotYetValid      Reason = "not_yet_valid"
	ReasonExpired          Reason = "expired"
	ReasonLimitReached     Reason = "limit_reached"
	ReasonAlreadyRedeemed  Reason = "already_redeemed"
	ReasonNotAuthenticated Reason = "not_authenticated"
)

var reasonMessages = map[Reason]string{
	ReasonNotFound:         "Voucher not found",
	ReasonNotActive:        "Voucher is not active",
	ReasonNotYetValid:      "Voucher is not valid yet",
	ReasonExpired:          "Voucher has expired",
	ReasonLimitReached:     "Voucher redemption limit reached",
	ReasonAlreadyRedeemed:  "You have already redeemed this voucher",
	ReasonNotAuthenticated: "Sign in to redeem this voucher",
}

// Message is the user-facing text for a reason
func (r Reason) Message() string {
	if msg, ok := reasonMessages[r]; ok {
		return msg
	}
	return "Voucher can be redeemed"
}

// Snapshot is the state an eligibility decision is made on.
// Found is false when the voucher does not exist.
type Snapshot struct {
	Found           bool
	IsActive        bool
	ValidFrom       time.Time
	ValidUntil      *time.Time
	MaxRedemptions  *int
	RedemptionsUsed int
	AlreadyRedeemed bool
}

// SnapshotOf builds a snapshot from a voucher row, which may be nil
func SnapshotOf(v *models.Voucher, alreadyRedeemed bool) Snapshot {
	if v == nil {
		return Snapshot{}
	}
	return Snapshot{
		Found:           true,
		IsActive:        v.IsActive,
		ValidFrom:       v.ValidFrom,
		ValidUntil:      v.ValidUntil,
		MaxRedemptions:  v.MaxRedemptions,
		RedemptionsUsed: v.RedemptionsUsed,
		AlreadyRedeemed: alreadyRedeemed,
	}
}

// Eligibility is the outcome of Evaluate
type Eligibility struct {
	Eligible bool
	Reason   Reason
}

// Evaluate applies the redemption rules in order; the first failing rule decides.
// Both ends of the validity window are inclusive.
func Evaluate(s Snapshot, now time.Time) Eligibility {
	switch {
	case !s.Found:
		return reject(ReasonNotFound)
	case !s.IsActive:
		return reject(ReasonNotActive)
	case now.Before(s.ValidFrom):
		return reject(ReasonNotYetValid)
	case s.ValidUntil != nil && now.After(*s.ValidUntil):
		return reject(ReasonExpired)
	case s.MaxRedemptions != nil && s.RedemptionsUsed >= *s.MaxRedemptions:
		return reject(ReasonLimitReached)
	case s.AlreadyRedeemed:
		return reject(ReasonAlreadyRedeemed)
	}
	return Eligibility{Eligible: true}
}

func reject(reason Reason) Eligibility {
	return Eligibility{Reason: reason}
}
