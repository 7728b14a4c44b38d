//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"

	"support-chat/domain"
	"support-chat/errors"
)

type IMessageRepository interface {
	StoreMessage(message StoredMessage) error
	GetMessages(customerID string) ([]StoredMessage, error)
	DeleteMessages(customerID string) (int, error)
}

type MessageRepository struct {
	db            *badger.DB
	log           *slog.Logger
	limitMessages *int
}

func NewMessageRepository(db *badger.DB, log *slog.Logger, limitMessages *int) MessageRepository {
	return MessageRepository{db: db, log: log, limitMessages: limitMessages}
}

// StoredMessage is the persistence shape of a chat message. CustomerID
// is the conversation key the message is filed under.
type StoredMessage struct {
	ID          uuid.UUID   `json:"id"`
	CustomerID  string      `json:"customer_id"`
	SenderID    string      `json:"sender_id"`
	SenderRole  domain.Role `json:"sender_role"`
	RecipientID string      `json:"recipient_id"`
	Body        string      `json:"body"`
	At          time.Time   `json:"at"`
}

// messageKey formats the BadgerDB key as "msg:{customer_id}:{timestamp_padded}:{uuid}" to:
//  1. Ensure chronological sorting using 19-digit zero padding (lexicographical order).
//  2. Prevent data loss by using UUID as a collision disconnector if two messages
//     arrive at the same nanosecond.
func messageKey(message StoredMessage) []byte {
	return []byte(fmt.Sprintf("msg:%s:%019d:%s",
		message.CustomerID,
		message.At.UnixNano(),
		message.ID,
	))
}

func customerPrefix(customerID string) []byte {
	return []byte(fmt.Sprintf("msg:%s:", customerID))
}

// StoreMessage persists a message in BadgerDB under its conversation key.
func (m MessageRepository) StoreMessage(message StoredMessage) error {
	bytes, err := json.Marshal(message)
	if err != nil {
		return err
	}
	err = m.db.Update(func(txn *badger.Txn) error {
		return txn.Set(messageKey(message), bytes)
	})
	if err != nil {
		return fmt.Errorf("%w: %v", errors.ErrPersistenceFailure, err)
	}
	return nil
}

// GetMessages retrieves the full history of a customer's conversation
// using a prefix scan. Thanks to the padded timestamp in the key,
// messages come back naturally sorted by time. Collection stops once
// the configured limitMessages is reached.
func (m MessageRepository) GetMessages(customerID string) ([]StoredMessage, error) {
	var byteMessages [][]byte
	err := m.db.View(func(txn *badger.Txn) error {
		prefix := customerPrefix(customerID)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if m.limitMessages != nil && len(byteMessages) == *m.limitMessages {
				m.log.Debug(fmt.Sprintf("Maximum of %d messages reached", *m.limitMessages))
				break
			}
			err := it.Item().Value(func(value []byte) error {
				byteMessages = append(byteMessages, append([]byte(nil), value...))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var messages []StoredMessage
	for _, b := range byteMessages {
		var message StoredMessage
		if err = json.Unmarshal(b, &message); err != nil {
			return nil, err
		}
		messages = append(messages, message)
	}
	return messages, nil
}

// DeleteMessages purges the whole history of a customer's conversation
// in a single transaction, so a failure leaves the history untouched.
// Returns how many messages were removed.
func (m MessageRepository) DeleteMessages(customerID string) (int, error) {
	var keys [][]byte
	err := m.db.View(func(txn *badger.Txn) error {
		prefix := customerPrefix(customerID)
		options := badger.DefaultIteratorOptions
		options.PrefetchValues = false
		it := txn.NewIterator(options)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if len(keys) == 0 {
		return 0, nil
	}

	err = m.db.Update(func(txn *badger.Txn) error {
		for _, key := range keys {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", errors.ErrPersistenceFailure, err)
	}
	return len(keys), nil
}

// FromDomain files a domain message under its conversation key.
func FromDomain(message domain.Message) StoredMessage {
	return StoredMessage{
		ID:          message.ID,
		CustomerID:  message.CustomerID(),
		SenderID:    message.SenderID,
		SenderRole:  message.SenderRole,
		RecipientID: message.RecipientID,
		Body:        message.Body,
		At:          message.CreatedAt,
	}
}

// ToDomain maps stored messages back to their domain shape.
func ToDomain(messages []StoredMessage) []domain.Message {
	return lo.Map(messages, func(item StoredMessage, _ int) domain.Message {
		return domain.Message{
			ID:          item.ID,
			SenderID:    item.SenderID,
			SenderRole:  item.SenderRole,
			RecipientID: item.RecipientID,
			Body:        item.Body,
			CreatedAt:   item.At,
		}
	})
}
