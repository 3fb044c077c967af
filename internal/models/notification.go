// Package models defines the core data structures for Courier.
//
// This file enumerates the closed set of notification types the catalog and
// throttle policy dispatch on.
package models

import "errors"

// NotificationType identifies one of the fixed notification emails this
// service can produce. The set is closed: every switch over it carries a
// default branch so an unknown type is a terminal user error, never a panic.
type NotificationType string

const (
	// Auction / bidding
	NotificationAuctionWon        NotificationType = "AUCTION_WON"
	NotificationAuctionEndingSoon NotificationType = "AUCTION_ENDING_SOON"
	NotificationNewBidOnYourItem  NotificationType = "NEW_BID_ON_YOUR_ITEM"
	NotificationOutbid            NotificationType = "OUTBID"

	// Sales
	NotificationItemSold          NotificationType = "ITEM_SOLD"
	NotificationPurchaseConfirmed NotificationType = "PURCHASE_CONFIRMED"

	// Messaging
	NotificationNewItemChatMessage NotificationType = "NEW_ITEM_CHAT_MESSAGE"
	NotificationNewDirectMessage   NotificationType = "NEW_DIRECT_MESSAGE"

	// Account / trust
	NotificationNewFollower          NotificationType = "NEW_FOLLOWER"
	NotificationNewReview            NotificationType = "NEW_REVIEW"
	NotificationVouchedForYou        NotificationType = "VOUCHED_FOR_YOU"
	NotificationVerificationApproved NotificationType = "VERIFICATION_APPROVED"

	// Watchlist / alerts
	NotificationWatchedItemPriceDrop  NotificationType = "WATCHED_ITEM_PRICE_DROP"
	NotificationWatchedItemEndingSoon NotificationType = "WATCHED_ITEM_ENDING_SOON"
	NotificationSavedSearchMatch      NotificationType = "SAVED_SEARCH_MATCH"

	// Moderation
	NotificationItemRemoved    NotificationType = "ITEM_REMOVED"
	NotificationItemApproved   NotificationType = "ITEM_APPROVED"
	NotificationAccountWarning NotificationType = "ACCOUNT_WARNING"
)

// ErrUnknownNotificationType is returned when a request names a type outside
// the closed set above.
var ErrUnknownNotificationType = errors.New("unknown notification type")

// IsValidNotificationType checks if the given notification type is supported.
func IsValidNotificationType(t NotificationType) bool {
	switch t {
	case NotificationAuctionWon, NotificationAuctionEndingSoon,
		NotificationNewBidOnYourItem, NotificationOutbid,
		NotificationItemSold, NotificationPurchaseConfirmed,
		NotificationNewItemChatMessage, NotificationNewDirectMessage,
		NotificationNewFollower, NotificationNewReview,
		NotificationVouchedForYou, NotificationVerificationApproved,
		NotificationWatchedItemPriceDrop, NotificationWatchedItemEndingSoon,
		NotificationSavedSearchMatch,
		NotificationItemRemoved, NotificationItemApproved, NotificationAccountWarning:
		return true
	default:
		return false
	}
}

// NotificationPayload is a request to send one catalog notification email.
// Data holds freeform, type-specific fields used by the formatter and the
// throttle context extraction.
type NotificationPayload struct {
	Type      NotificationType       `json:"type"`
	Recipient Recipient              `json:"recipient"`
	Data      map[string]interface{} `json:"data"`
}

// Validate checks the payload before it reaches the enqueue path.
func (p *NotificationPayload) Validate() error {
	if !IsValidNotificationType(p.Type) {
		return ErrUnknownNotificationType
	}
	return p.Recipient.Validate()
}

// SendEmailInput is a request to send a template-based email. Throttling is
// opt-in: it applies only when Category, ContextID, and a positive
// ThrottleIntervalMs are all supplied.
type SendEmailInput struct {
	Template           string    `json:"template"`
	Recipient          Recipient `json:"recipient"`
	Variables          string    `json:"variables,omitempty"` // JSON-encoded string map
	Category           string    `json:"category,omitempty"`
	ContextID          string    `json:"context_id,omitempty"`
	ThrottleIntervalMs int64     `json:"throttle_interval_ms,omitempty"`
	Metadata           string    `json:"metadata,omitempty"`
}

// SendRawEmailInput is a request to send a fully rendered email with no
// template lookup.
type SendRawEmailInput struct {
	Recipient          Recipient `json:"recipient"`
	Subject            string    `json:"subject"`
	BodyHTML           string    `json:"body_html"`
	BodyText           string    `json:"body_text"`
	Category           string    `json:"category,omitempty"`
	ContextID          string    `json:"context_id,omitempty"`
	ThrottleIntervalMs int64     `json:"throttle_interval_ms,omitempty"`
	Metadata           string    `json:"metadata,omitempty"`
}

// Validate checks the raw send input.
func (in *SendRawEmailInput) Validate() error {
	if err := in.Recipient.Validate(); err != nil {
		return err
	}
	if in.Subject == "" {
		return ErrEmptySubject
	}
	if len(in.Subject) > MaxSubjectLength {
		return ErrSubjectTooLong
	}
	if in.BodyHTML == "" && in.BodyText == "" {
		return ErrEmptyBody
	}
	return nil
}
