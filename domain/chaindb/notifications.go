package chaindb

import (
	"fmt"

	"github.com/futurepia/futurepia-sub000/domain/consensus/model"
)

// NotificationType represents the type of a notification message.
type NotificationType int

// NotificationCallback is used for a caller to provide a callback for
// notifications about various chain events.
type NotificationCallback func(*Notification)

// Constants for the type of a notification message.
const (
	// NTBlockApplied indicates a block was applied on top of the head.
	NTBlockApplied NotificationType = iota

	// NTTransactionApplied indicates a transaction was accepted into the
	// pending transactions.
	NTTransactionApplied

	// NTIrreversibleBlock indicates a block became irreversible and was
	// written to the block log.
	NTIrreversibleBlock

	// NTProducerShutdown indicates a producer missed blocks for too long
	// and its signing key was cleared.
	NTProducerShutdown

	// NTHardforkApplied indicates a hardfork was applied.
	NTHardforkApplied

	// NTForkSwitched indicates the head moved to another branch.
	NTForkSwitched
)

// notificationTypeStrings is a map of notification types back to their
// constant names for pretty printing.
var notificationTypeStrings = map[NotificationType]string{
	NTBlockApplied:       "NTBlockApplied",
	NTTransactionApplied: "NTTransactionApplied",
	NTIrreversibleBlock:  "NTIrreversibleBlock",
	NTProducerShutdown:   "NTProducerShutdown",
	NTHardforkApplied:    "NTHardforkApplied",
	NTForkSwitched:       "NTForkSwitched",
}

// String returns the NotificationType in human-readable form.
func (n NotificationType) String() string {
	if s, ok := notificationTypeStrings[n]; ok {
		return s
	}
	return fmt.Sprintf("Unknown Notification Type (%d)", int(n))
}

// Notification defines notification that is sent to the caller via the
// callback function provided during the call to Subscribe. The Data field
// holds the *XNotificationData matching the notification type.
type Notification struct {
	Type NotificationType
	Data interface{}
}

// BlockAppliedNotificationData defines data to be sent along with an
// NTBlockApplied notification.
type BlockAppliedNotificationData struct {
	Block *model.SignedBlock
}

// TransactionAppliedNotificationData defines data to be sent along with an
// NTTransactionApplied notification.
type TransactionAppliedNotificationData struct {
	Transaction *model.SignedTransaction
}

// IrreversibleBlockNotificationData defines data to be sent along with an
// NTIrreversibleBlock notification.
type IrreversibleBlockNotificationData struct {
	Block *model.SignedBlock
}

// ProducerShutdownNotificationData defines data to be sent along with an
// NTProducerShutdown notification.
type ProducerShutdownNotificationData struct {
	Producer string
	BlockNum uint32
}

// HardforkAppliedNotificationData defines data to be sent along with an
// NTHardforkApplied notification.
type HardforkAppliedNotificationData struct {
	Hardfork uint32
	Version  model.Version
}

// ForkSwitchedNotificationData defines data to be sent along with an
// NTForkSwitched notification.
type ForkSwitchedNotificationData struct {
	OldHead      model.BlockID
	NewHead      model.BlockID
	PoppedBlocks int
}

// Subscribe to chain notifications. Registers a callback to be executed
// when various events take place. See the documentation on Notification
// and NotificationType for details on the types and contents of
// notifications. Callbacks run with the chain lock held and must not call
// back into the ChainDB.
func (db *ChainDB) Subscribe(callback NotificationCallback) {
	db.notificationsLock.Lock()
	defer db.notificationsLock.Unlock()
	db.notifications = append(db.notifications, callback)
}

// sendNotification sends a notification with the passed type and data to
// every subscriber.
func (db *ChainDB) sendNotification(typ NotificationType, data interface{}) {
	n := Notification{Type: typ, Data: data}
	db.notificationsLock.RLock()
	defer db.notificationsLock.RUnlock()
	for _, callback := range db.notifications {
		callback(&n)
	}
}

// queueNotification holds a notification raised while applying a block
// until the block is known to stick.
func (db *ChainDB) queueNotification(typ NotificationType, data interface{}) {
	db.queuedNotifications = append(db.queuedNotifications, Notification{Type: typ, Data: data})
}

func (db *ChainDB) sendQueuedNotifications() {
	queued := db.queuedNotifications
	db.queuedNotifications = nil
	for _, n := range queued {
		db.sendNotification(n.Type, n.Data)
	}
}

func (db *ChainDB) dropQueuedNotifications() {
	db.queuedNotifications = nil
}
