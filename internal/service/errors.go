package service

import "errors"

var (
	ErrEventNotFound     = errors.New("event not found")
	ErrEventCancelled    = errors.New("event is no longer available")
	ErrAlreadyQueued     = errors.New("user already has a live waitlist entry for this event")
	ErrEntryNotFound     = errors.New("waitlist entry not found")
	ErrOfferNotActive    = errors.New("no active ticket offer for this entry")
	ErrOwnershipMismatch = errors.New("waitlist entry belongs to another user")
	ErrHasActiveTickets  = errors.New("cannot cancel event while tickets exist; refund them first")
	ErrTicketFloor       = errors.New("total tickets cannot be reduced below tickets already sold")
	ErrTooManyJoins      = errors.New("too many waitlist joins, try again later")
)
