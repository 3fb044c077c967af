package catalog

import (
	"fmt"
	"math"
	"strings"

	"github.com/courierhq/courier/internal/models"
)

func formatAuctionWon(recipientName string, data map[string]interface{}) models.EmailContent {
	itemTitle := fieldString(data, "itemTitle")
	finalPrice := formatPrice(fieldNumber(data, "finalPrice"))
	sellerName := fieldString(data, "sellerName")

	return models.EmailContent{
		Subject: fmt.Sprintf("You won the auction for %q", itemTitle),
		HTML: wrapHTML(fmt.Sprintf(`
  <h2>Congratulations, %s!</h2>
  <p>You won the auction for <strong>%s</strong>.</p>
  <p><strong>Final price:</strong> %s</p>
  <p><strong>Seller:</strong> %s</p>
  <p>Please contact the seller to arrange payment and delivery.</p>`,
			recipientName, itemTitle, finalPrice, sellerName)),
		Text: fmt.Sprintf(`Congratulations, %s!

You won the auction for %q.

Final price: %s
Seller: %s

Please contact the seller to arrange payment and delivery.`,
			recipientName, itemTitle, finalPrice, sellerName),
	}
}

func formatAuctionEndingSoon(recipientName string, data map[string]interface{}) models.EmailContent {
	itemTitle := fieldString(data, "itemTitle")
	currentBid := formatPrice(fieldNumber(data, "currentBid"))
	hoursRemaining := fieldString(data, "hoursRemaining")

	return models.EmailContent{
		Subject: fmt.Sprintf("Auction ending soon: %q", itemTitle),
		HTML: wrapHTML(fmt.Sprintf(`
  <h2>Auction ending soon</h2>
  <p>Hi %s, the auction for <strong>%s</strong> ends in %s hours.</p>
  <p><strong>Current bid:</strong> %s</p>
  <p>Don't miss out - place your bid now!</p>`,
			recipientName, itemTitle, hoursRemaining, currentBid)),
		Text: fmt.Sprintf(`Auction ending soon

Hi %s, the auction for %q ends in %s hours.

Current bid: %s

Don't miss out - place your bid now!`,
			recipientName, itemTitle, hoursRemaining, currentBid),
	}
}

func formatNewBidOnYourItem(recipientName string, data map[string]interface{}) models.EmailContent {
	itemTitle := fieldString(data, "itemTitle")
	bidAmount := formatPrice(fieldNumber(data, "bidAmount"))
	bidderName := fieldString(data, "bidderName")
	totalBids := fieldString(data, "totalBids")

	return models.EmailContent{
		Subject: fmt.Sprintf("New bid on %q: %s", itemTitle, bidAmount),
		HTML: wrapHTML(fmt.Sprintf(`
  <h2>New bid on your item</h2>
  <p>Hi %s, <strong>%s</strong> placed a bid on <strong>%s</strong>.</p>
  <p><strong>Bid amount:</strong> %s</p>
  <p><strong>Total bids:</strong> %s</p>`,
			recipientName, bidderName, itemTitle, bidAmount, totalBids)),
		Text: fmt.Sprintf(`New bid on your item

Hi %s, %s placed a bid on %q.

Bid amount: %s
Total bids: %s`,
			recipientName, bidderName, itemTitle, bidAmount, totalBids),
	}
}

func formatOutbid(recipientName string, data map[string]interface{}) models.EmailContent {
	itemTitle := fieldString(data, "itemTitle")
	newHighBid := formatPrice(fieldNumber(data, "newHighBid"))
	yourBid := formatPrice(fieldNumber(data, "yourBid"))

	return models.EmailContent{
		Subject: fmt.Sprintf("You've been outbid on %q", itemTitle),
		HTML: wrapHTML(fmt.Sprintf(`
  <h2>You've been outbid</h2>
  <p>Hi %s, someone has placed a higher bid on <strong>%s</strong>.</p>
  <p><strong>New high bid:</strong> %s</p>
  <p><strong>Your bid:</strong> %s</p>
  <p>Place a new bid if you still want this item.</p>`,
			recipientName, itemTitle, newHighBid, yourBid)),
		Text: fmt.Sprintf(`You've been outbid

Hi %s, someone has placed a higher bid on %q.

New high bid: %s
Your bid: %s

Place a new bid if you still want this item.`,
			recipientName, itemTitle, newHighBid, yourBid),
	}
}

func formatItemSold(recipientName string, data map[string]interface{}) models.EmailContent {
	itemTitle := fieldString(data, "itemTitle")
	finalPrice := formatPrice(fieldNumber(data, "finalPrice"))
	buyerName := fieldString(data, "buyerName")

	return models.EmailContent{
		Subject: fmt.Sprintf("Your item %q has been sold", itemTitle),
		HTML: wrapHTML(fmt.Sprintf(`
  <h2>Your item has been sold!</h2>
  <p>Hi %s, your item <strong>%s</strong> has been sold.</p>
  <p><strong>Final price:</strong> %s</p>
  <p><strong>Buyer:</strong> %s</p>
  <p>Please contact the buyer to arrange payment and delivery.</p>`,
			recipientName, itemTitle, finalPrice, buyerName)),
		Text: fmt.Sprintf(`Your item has been sold!

Hi %s, your item %q has been sold.

Final price: %s
Buyer: %s

Please contact the buyer to arrange payment and delivery.`,
			recipientName, itemTitle, finalPrice, buyerName),
	}
}

func formatPurchaseConfirmed(recipientName string, data map[string]interface{}) models.EmailContent {
	itemTitle := fieldString(data, "itemTitle")
	price := formatPrice(fieldNumber(data, "price"))
	sellerName := fieldString(data, "sellerName")

	return models.EmailContent{
		Subject: fmt.Sprintf("Purchase confirmed: %q", itemTitle),
		HTML: wrapHTML(fmt.Sprintf(`
  <h2>Purchase confirmed</h2>
  <p>Hi %s, your purchase of <strong>%s</strong> has been confirmed.</p>
  <p><strong>Price:</strong> %s</p>
  <p><strong>Seller:</strong> %s</p>
  <p>Please contact the seller to arrange payment and delivery.</p>`,
			recipientName, itemTitle, price, sellerName)),
		Text: fmt.Sprintf(`Purchase confirmed

Hi %s, your purchase of %q has been confirmed.

Price: %s
Seller: %s

Please contact the seller to arrange payment and delivery.`,
			recipientName, itemTitle, price, sellerName),
	}
}

func formatNewItemChatMessage(recipientName string, data map[string]interface{}) models.EmailContent {
	itemTitle := fieldString(data, "itemTitle")
	senderName := fieldString(data, "senderName")
	messagePreview := fieldString(data, "messagePreview")

	return models.EmailContent{
		Subject: fmt.Sprintf("New message about %q from %s", itemTitle, senderName),
		HTML: wrapHTML(fmt.Sprintf(`
  <h2>New message about your item</h2>
  <p>Hi %s, <strong>%s</strong> sent a message about <strong>%s</strong>:</p>
  <blockquote style="border-left: 3px solid #ddd; padding-left: 12px; color: #555; margin: 16px 0;">%s</blockquote>
  <p>Log in to %s to reply.</p>`,
			recipientName, senderName, itemTitle, messagePreview, siteName)),
		Text: fmt.Sprintf(`New message about your item

Hi %s, %s sent a message about %q:

%q

Log in to %s to reply.`,
			recipientName, senderName, itemTitle, messagePreview, siteName),
	}
}

func formatNewDirectMessage(recipientName string, data map[string]interface{}) models.EmailContent {
	senderName := fieldString(data, "senderName")
	messagePreview := fieldString(data, "messagePreview")

	return models.EmailContent{
		Subject: fmt.Sprintf("New message from %s", senderName),
		HTML: wrapHTML(fmt.Sprintf(`
  <h2>New message</h2>
  <p>Hi %s, <strong>%s</strong> sent you a message:</p>
  <blockquote style="border-left: 3px solid #ddd; padding-left: 12px; color: #555; margin: 16px 0;">%s</blockquote>
  <p>Log in to %s to reply.</p>`,
			recipientName, senderName, messagePreview, siteName)),
		Text: fmt.Sprintf(`New message

Hi %s, %s sent you a message:

%q

Log in to %s to reply.`,
			recipientName, senderName, messagePreview, siteName),
	}
}

func formatNewFollower(recipientName string, data map[string]interface{}) models.EmailContent {
	followerName := fieldString(data, "followerName")
	followerUsername := fieldString(data, "followerUsername")

	return models.EmailContent{
		Subject: fmt.Sprintf("%s started following you", followerName),
		HTML: wrapHTML(fmt.Sprintf(`
  <h2>New follower</h2>
  <p>Hi %s, <strong>%s</strong> (@%s) is now following you on %s.</p>
  <p>Check out their profile and listings.</p>`,
			recipientName, followerName, followerUsername, siteName)),
		Text: fmt.Sprintf(`New follower

Hi %s, %s (@%s) is now following you on %s.

Check out their profile and listings.`,
			recipientName, followerName, followerUsername, siteName),
	}
}

func formatNewReview(recipientName string, data map[string]interface{}) models.EmailContent {
	reviewerName := fieldString(data, "reviewerName")
	itemTitle := fieldString(data, "itemTitle")
	reviewText := fieldString(data, "reviewText")
	rating := int(fieldNumber(data, "rating"))
	if rating < 0 {
		rating = 0
	}
	if rating > 5 {
		rating = 5
	}
	stars := strings.Repeat("★", rating) + strings.Repeat("☆", 5-rating)

	roleText := "seller"
	if fieldString(data, "reviewType") == "buyer" {
		roleText = "buyer"
	}

	return models.EmailContent{
		Subject: fmt.Sprintf("%s left you a %d-star review", reviewerName, rating),
		HTML: wrapHTML(fmt.Sprintf(`
  <h2>New review</h2>
  <p>Hi %s, <strong>%s</strong> (%s) left you a review for <strong>%s</strong>.</p>
  <p style="font-size: 24px; color: #f5a623;">%s</p>
  <blockquote style="border-left: 3px solid #ddd; padding-left: 12px; color: #555; margin: 16px 0;">%s</blockquote>`,
			recipientName, reviewerName, roleText, itemTitle, stars, reviewText)),
		Text: fmt.Sprintf(`New review

Hi %s, %s (%s) left you a review for %q.

Rating: %s (%d/5)

%q`,
			recipientName, reviewerName, roleText, itemTitle, stars, rating, reviewText),
	}
}

func formatVouchedForYou(recipientName string, data map[string]interface{}) models.EmailContent {
	voucherName := fieldString(data, "voucherName")
	voucherUsername := fieldString(data, "voucherUsername")

	return models.EmailContent{
		Subject: fmt.Sprintf("%s vouched for you", voucherName),
		HTML: wrapHTML(fmt.Sprintf(`
  <h2>Someone vouched for you</h2>
  <p>Hi %s, <strong>%s</strong> (@%s) has vouched for you on %s.</p>
  <p>Being vouched for increases your trust score and helps other users feel confident transacting with you.</p>`,
			recipientName, voucherName, voucherUsername, siteName)),
		Text: fmt.Sprintf(`Someone vouched for you

Hi %s, %s (@%s) has vouched for you on %s.

Being vouched for increases your trust score and helps other users feel confident transacting with you.`,
			recipientName, voucherName, voucherUsername, siteName),
	}
}

func formatVerificationApproved(recipientName string, data map[string]interface{}) models.EmailContent {
	verificationType := fieldString(data, "verificationType")

	return models.EmailContent{
		Subject: "Your verification has been approved",
		HTML: wrapHTML(fmt.Sprintf(`
  <h2>Verification approved</h2>
  <p>Hi %s, your %s verification has been approved.</p>
  <p>Your profile now shows a verification badge, which helps build trust with other users.</p>`,
			recipientName, verificationType)),
		Text: fmt.Sprintf(`Verification approved

Hi %s, your %s verification has been approved.

Your profile now shows a verification badge, which helps build trust with other users.`,
			recipientName, verificationType),
	}
}

func formatWatchedItemPriceDrop(recipientName string, data map[string]interface{}) models.EmailContent {
	itemTitle := fieldString(data, "itemTitle")
	oldPrice := fieldNumber(data, "oldPrice")
	newPrice := fieldNumber(data, "newPrice")
	sellerName := fieldString(data, "sellerName")

	var discount int
	if oldPrice > 0 {
		discount = int(math.Round((oldPrice - newPrice) / oldPrice * 100))
	}

	return models.EmailContent{
		Subject: fmt.Sprintf("Price drop: %q now %s", itemTitle, formatPrice(newPrice)),
		HTML: wrapHTML(fmt.Sprintf(`
  <h2>Price drop on watched item</h2>
  <p>Hi %s, an item you're watching has dropped in price.</p>
  <p><strong>%s</strong></p>
  <p><strong>New price:</strong> %s <span style="color: #e74c3c; text-decoration: line-through;">%s</span> (%d%% off)</p>
  <p><strong>Seller:</strong> %s</p>`,
			recipientName, itemTitle, formatPrice(newPrice), formatPrice(oldPrice), discount, sellerName)),
		Text: fmt.Sprintf(`Price drop on watched item

Hi %s, an item you're watching has dropped in price.

%s
New price: %s (was %s, %d%% off)
Seller: %s`,
			recipientName, itemTitle, formatPrice(newPrice), formatPrice(oldPrice), discount, sellerName),
	}
}

func formatWatchedItemEndingSoon(recipientName string, data map[string]interface{}) models.EmailContent {
	itemTitle := fieldString(data, "itemTitle")
	currentBid := formatPrice(fieldNumber(data, "currentBid"))
	hoursRemaining := fieldString(data, "hoursRemaining")

	return models.EmailContent{
		Subject: fmt.Sprintf("Watched auction ending: %q", itemTitle),
		HTML: wrapHTML(fmt.Sprintf(`
  <h2>Watched auction ending soon</h2>
  <p>Hi %s, an auction you're watching ends in %s hours.</p>
  <p><strong>%s</strong></p>
  <p><strong>Current bid:</strong> %s</p>
  <p>Place a bid now if you're interested!</p>`,
			recipientName, hoursRemaining, itemTitle, currentBid)),
		Text: fmt.Sprintf(`Watched auction ending soon

Hi %s, an auction you're watching ends in %s hours.

%s
Current bid: %s

Place a bid now if you're interested!`,
			recipientName, hoursRemaining, itemTitle, currentBid),
	}
}

func formatSavedSearchMatch(recipientName string, data map[string]interface{}) models.EmailContent {
	searchQuery := fieldString(data, "searchQuery")
	itemTitle := fieldString(data, "itemTitle")
	price := formatPrice(fieldNumber(data, "price"))
	sellerName := fieldString(data, "sellerName")

	return models.EmailContent{
		Subject: fmt.Sprintf("New match for %q", searchQuery),
		HTML: wrapHTML(fmt.Sprintf(`
  <h2>New item matches your search</h2>
  <p>Hi %s, a new item matches your saved search "<strong>%s</strong>".</p>
  <p><strong>%s</strong></p>
  <p><strong>Price:</strong> %s</p>
  <p><strong>Seller:</strong> %s</p>`,
			recipientName, searchQuery, itemTitle, price, sellerName)),
		Text: fmt.Sprintf(`New item matches your search

Hi %s, a new item matches your saved search %q.

%s
Price: %s
Seller: %s`,
			recipientName, searchQuery, itemTitle, price, sellerName),
	}
}

func formatItemRemoved(recipientName string, data map[string]interface{}) models.EmailContent {
	itemTitle := fieldString(data, "itemTitle")
	reason := fieldString(data, "reason")

	var noteSection, noteText string
	if hasField(data, "moderatorNote") {
		note := fieldString(data, "moderatorNote")
		noteSection = fmt.Sprintf("<p><strong>Moderator note:</strong> %s</p>\n  ", note)
		noteText = fmt.Sprintf("\nModerator note: %s", note)
	}

	return models.EmailContent{
		Subject: fmt.Sprintf("Your listing %q has been removed", itemTitle),
		HTML: wrapHTML(fmt.Sprintf(`
  <h2>Listing removed</h2>
  <p>Hi %s, your listing <strong>%s</strong> has been removed by a moderator.</p>
  <p><strong>Reason:</strong> %s</p>
  %s<p>If you believe this was a mistake, please contact support.</p>`,
			recipientName, itemTitle, reason, noteSection)),
		Text: fmt.Sprintf(`Listing removed

Hi %s, your listing %q has been removed by a moderator.

Reason: %s%s

If you believe this was a mistake, please contact support.`,
			recipientName, itemTitle, reason, noteText),
	}
}

func formatItemApproved(recipientName string, data map[string]interface{}) models.EmailContent {
	itemTitle := fieldString(data, "itemTitle")

	return models.EmailContent{
		Subject: fmt.Sprintf("Your listing %q has been approved", itemTitle),
		HTML: wrapHTML(fmt.Sprintf(`
  <h2>Listing approved</h2>
  <p>Hi %s, your listing <strong>%s</strong> has been reviewed and approved.</p>
  <p>Your item is now visible to all users on %s.</p>`,
			recipientName, itemTitle, siteName)),
		Text: fmt.Sprintf(`Listing approved

Hi %s, your listing %q has been reviewed and approved.

Your item is now visible to all users on %s.`,
			recipientName, itemTitle, siteName),
	}
}

func formatAccountWarning(recipientName string, data map[string]interface{}) models.EmailContent {
	reason := fieldString(data, "reason")
	warningLevel := fieldString(data, "warningLevel")

	levelText := "Notice"
	switch warningLevel {
	case "final":
		levelText = "Final Warning"
	case "major":
		levelText = "Warning"
	}

	var detailsSection, detailsText string
	if hasField(data, "details") {
		details := fieldString(data, "details")
		detailsSection = fmt.Sprintf("<p><strong>Details:</strong> %s</p>\n  ", details)
		detailsText = fmt.Sprintf("\nDetails: %s", details)
	}

	var severityNote, severityText string
	if warningLevel == "final" {
		severityNote = "<p style='color: #e74c3c;'><strong>This is a final warning. Further violations may result in account suspension.</strong></p>\n  "
		severityText = "\n\nThis is a final warning. Further violations may result in account suspension."
	}

	return models.EmailContent{
		Subject: fmt.Sprintf("Account %s: Action required", levelText),
		HTML: wrapHTML(fmt.Sprintf(`
  <h2>Account %s</h2>
  <p>Hi %s, your account has received a warning.</p>
  <p><strong>Reason:</strong> %s</p>
  %s%s<p>Please review our community guidelines to avoid future issues.</p>`,
			levelText, recipientName, reason, detailsSection, severityNote)),
		Text: fmt.Sprintf(`Account %s

Hi %s, your account has received a warning.

Reason: %s%s%s

Please review our community guidelines to avoid future issues.`,
			levelText, recipientName, reason, detailsText, severityText),
	}
}
