// Package notifier delivers operator-facing notifications about purchases
// and failures. The log notifier is the default sink; richer channels
// implement the same methods.
package notifier

import (
	"giftsniper/logger"
	"giftsniper/models"
)

// LogNotifier writes notifications to the structured log.
type LogNotifier struct {
	log *logger.Entry
}

// NewLogNotifier creates a notifier backed by the shared logger.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{log: logger.GetLogger().WithComponent("notifier")}
}

// NotifyBuy reports a completed purchase.
func (n *LogNotifier) NotifyBuy(listing models.Listing, price, profit models.Money) {
	n.log.WithFields(logger.Fields{
		"listing_id": listing.ID,
		"name":       listing.Name,
		"model":      listing.Model,
		"price":      price.String(),
		"profit":     profit.String(),
	}).Info("gift purchased")
}

// NotifyError reports a failure the operator should know about.
func (n *LogNotifier) NotifyError(message string, err error) {
	n.log.WithError(err).Error(message)
}
