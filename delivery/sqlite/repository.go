package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/marcelsud/webhook-dispatch/delivery"
)

const schema = `
CREATE TABLE IF NOT EXISTS delivery_results (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    notification_id TEXT NOT NULL,
    webhook_id TEXT NOT NULL,
    subscription_id TEXT NOT NULL,
    event_type TEXT NOT NULL,
    destination_url TEXT NOT NULL,
    successful INTEGER NOT NULL,
    attempts TEXT NOT NULL,
    created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_delivery_results_subscription
    ON delivery_results(subscription_id);

CREATE INDEX IF NOT EXISTS idx_delivery_results_notification
    ON delivery_results(notification_id);
`

/* SQLite implementation of the delivery history store
 * Serves the pipeline's write-only delivery.Writer seam and lets
 * operators read back a subscription's attempt history
 */
type Repository struct {
	db *sql.DB
}

// HistoryEntry is one persisted delivery result
type HistoryEntry struct {
	NotificationID string
	WebhookID      string
	SubscriptionID string
	EventType      string
	DestinationURL string
	Successful     bool
	Attempts       []delivery.Attempt
	CreatedAt      time.Time
}

// NewRepository opens (and initializes) the SQLite database at path
func NewRepository(path string) (*Repository, error) {
	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}

	return &Repository{db: db}, nil
}

// StoreResult persists one delivery result with its full attempt history
func (r *Repository) StoreResult(ctx context.Context, notificationID string, result delivery.Result) error {
	attempts, err := json.Marshal(result.Attempts)
	if err != nil {
		return fmt.Errorf("marshaling attempts: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO delivery_results
			(notification_id, webhook_id, subscription_id, event_type, destination_url, successful, attempts)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		notificationID,
		result.Webhook.ID,
		result.Webhook.SubscriptionID,
		result.Webhook.EventType,
		result.Webhook.DestinationURL,
		result.Successful(),
		string(attempts),
	)
	if err != nil {
		return fmt.Errorf("storing delivery result: %w", err)
	}
	return nil
}

// HistoryBySubscription returns the most recent delivery results for a subscription
func (r *Repository) HistoryBySubscription(ctx context.Context, subscriptionID string, limit int) ([]HistoryEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT notification_id, webhook_id, subscription_id, event_type, destination_url, successful, attempts, created_at
		FROM delivery_results
		WHERE subscription_id = ?
		ORDER BY id DESC
		LIMIT ?`,
		subscriptionID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying delivery history: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// HistoryByNotification returns every delivery result for one notification
func (r *Repository) HistoryByNotification(ctx context.Context, notificationID string) ([]HistoryEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT notification_id, webhook_id, subscription_id, event_type, destination_url, successful, attempts, created_at
		FROM delivery_results
		WHERE notification_id = ?
		ORDER BY id`,
		notificationID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying delivery history: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// Close closes the database
func (r *Repository) Close(_ context.Context) error {
	return r.db.Close()
}

func scanEntries(rows *sql.Rows) ([]HistoryEntry, error) {
	entries := make([]HistoryEntry, 0)
	for rows.Next() {
		var entry HistoryEntry
		var attempts string
		err := rows.Scan(
			&entry.NotificationID,
			&entry.WebhookID,
			&entry.SubscriptionID,
			&entry.EventType,
			&entry.DestinationURL,
			&entry.Successful,
			&attempts,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning delivery history row: %w", err)
		}
		if err := json.Unmarshal([]byte(attempts), &entry.Attempts); err != nil {
			return nil, fmt.Errorf("unmarshaling attempts: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating delivery history rows: %w", err)
	}
	return entries, nil
}
