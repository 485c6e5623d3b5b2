package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/marcelsud/webhook-dispatch/subscription"
	"github.com/redis/go-redis/v9"
)

/* Redis implementation of subscription.Repository
 * Uses Redis Hashes for subscription records, a Set per event type as a
 * secondary index, and a sorted Set for stable paging
 */

const (
	hashPrefix     = "subscription"           // Hash naming: subscription:{id}
	typeIndexKey   = "subscriptions:by-type"  // Set naming: subscriptions:by-type:{event_type}
	allIndexKey    = "subscriptions:all"      // Sorted set of all subscription IDs
	connectTimeout = 5 * time.Second
)

type Repository struct {
	client *redis.Client
}

// NewRepository creates a new Redis repository
func NewRepository(addr, password string, db int) (*Repository, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to Redis: %w", err)
	}

	return &Repository{
		client: client,
	}, nil
}

// NewRepositoryWithClient creates a repository over an existing client
func NewRepositoryWithClient(client *redis.Client) *Repository {
	return &Repository{client: client}
}

// Store adds a subscription, assigning an ID when absent
func (r *Repository) Store(ctx context.Context, sub subscription.Subscription) (string, error) {
	if sub.ID == "" {
		sub.ID = uuid.New().String()
	}

	if err := r.write(ctx, sub); err != nil {
		return "", err
	}

	// Index by event type and into the global paging index
	for _, et := range sub.EventTypes {
		if err := r.client.SAdd(ctx, typeKey(et), sub.ID).Err(); err != nil {
			return "", fmt.Errorf("indexing subscription by event type: %w", err)
		}
	}
	if err := r.client.ZAdd(ctx, allIndexKey, redis.Z{Score: 0, Member: sub.ID}).Err(); err != nil {
		return "", fmt.Errorf("indexing subscription: %w", err)
	}

	return sub.ID, nil
}

// Get retrieves a subscription by ID from its Redis hash
func (r *Repository) Get(ctx context.Context, id string) (subscription.Subscription, error) {
	data, err := r.client.HGetAll(ctx, hashKey(id)).Result()
	if err != nil {
		return subscription.Subscription{}, fmt.Errorf("getting subscription: %w", err)
	}
	if len(data) == 0 {
		return subscription.Subscription{}, subscription.ErrNotFound
	}

	return fromHash(data)
}

// FindByEventType returns subscriptions whose interest set contains the event type
func (r *Repository) FindByEventType(ctx context.Context, eventType string, activeOnly bool) ([]subscription.Subscription, error) {
	ids, err := r.client.SMembers(ctx, typeKey(eventType)).Result()
	if err != nil {
		return nil, fmt.Errorf("reading event type index: %w", err)
	}

	subs := make([]subscription.Subscription, 0, len(ids))
	for _, id := range ids {
		sub, err := r.Get(ctx, id)
		if err == subscription.ErrNotFound {
			// Stale index entry, skip
			continue
		}
		if err != nil {
			return nil, err
		}
		if activeOnly && sub.Status != subscription.Active {
			continue
		}
		subs = append(subs, sub)
	}

	return subs, nil
}

// List returns a page of subscriptions ordered by ID
func (r *Repository) List(ctx context.Context, offset, limit int) ([]subscription.Subscription, error) {
	count := int64(-1)
	if limit > 0 {
		count = int64(limit)
	}

	ids, err := r.client.ZRangeByLex(ctx, allIndexKey, &redis.ZRangeBy{
		Min: "-", Max: "+", Offset: int64(offset), Count: count,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("reading subscription index: %w", err)
	}

	subs := make([]subscription.Subscription, 0, len(ids))
	for _, id := range ids {
		sub, err := r.Get(ctx, id)
		if err == subscription.ErrNotFound {
			continue
		}
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, nil
}

// Update replaces an existing subscription and refreshes its indexes
func (r *Repository) Update(ctx context.Context, sub subscription.Subscription) error {
	old, err := r.Get(ctx, sub.ID)
	if err != nil {
		return err
	}

	for _, et := range old.EventTypes {
		if err := r.client.SRem(ctx, typeKey(et), sub.ID).Err(); err != nil {
			return fmt.Errorf("removing stale event type index: %w", err)
		}
	}

	if err := r.write(ctx, sub); err != nil {
		return err
	}
	for _, et := range sub.EventTypes {
		if err := r.client.SAdd(ctx, typeKey(et), sub.ID).Err(); err != nil {
			return fmt.Errorf("indexing subscription by event type: %w", err)
		}
	}
	return nil
}

// SetStatus updates only the status of a subscription
func (r *Repository) SetStatus(ctx context.Context, id string, status subscription.Status) error {
	exists, err := r.client.Exists(ctx, hashKey(id)).Result()
	if err != nil {
		return fmt.Errorf("checking subscription: %w", err)
	}
	if exists == 0 {
		return subscription.ErrNotFound
	}

	err = r.client.HSet(ctx, hashKey(id), map[string]interface{}{
		"status":     status.String(),
		"updated_at": time.Now().Unix(),
	}).Err()
	if err != nil {
		return fmt.Errorf("updating status: %w", err)
	}
	return nil
}

// Remove deletes a subscription and its index entries
func (r *Repository) Remove(ctx context.Context, id string) error {
	sub, err := r.Get(ctx, id)
	if err != nil {
		return err
	}

	for _, et := range sub.EventTypes {
		if err := r.client.SRem(ctx, typeKey(et), id).Err(); err != nil {
			return fmt.Errorf("removing event type index: %w", err)
		}
	}
	if err := r.client.ZRem(ctx, allIndexKey, id).Err(); err != nil {
		return fmt.Errorf("removing subscription index: %w", err)
	}
	if err := r.client.Del(ctx, hashKey(id)).Err(); err != nil {
		return fmt.Errorf("deleting subscription: %w", err)
	}
	return nil
}

// Close closes the Redis connection
func (r *Repository) Close(_ context.Context) error {
	return r.client.Close()
}

// Helper functions

func hashKey(id string) string {
	return fmt.Sprintf("%s:%s", hashPrefix, id)
}

func typeKey(eventType string) string {
	return fmt.Sprintf("%s:%s", typeIndexKey, eventType)
}

func (r *Repository) write(ctx context.Context, sub subscription.Subscription) error {
	eventTypesJSON, err := json.Marshal(sub.EventTypes)
	if err != nil {
		return fmt.Errorf("marshaling event types: %w", err)
	}
	filtersJSON, err := json.Marshal(sub.Filters)
	if err != nil {
		return fmt.Errorf("marshaling filters: %w", err)
	}
	headersJSON, err := json.Marshal(sub.Headers)
	if err != nil {
		return fmt.Errorf("marshaling headers: %w", err)
	}
	propertiesJSON, err := json.Marshal(sub.Properties)
	if err != nil {
		return fmt.Errorf("marshaling properties: %w", err)
	}

	err = r.client.HSet(ctx, hashKey(sub.ID), map[string]interface{}{
		"id":              sub.ID,
		"tenant_id":       sub.TenantID,
		"name":            sub.Name,
		"event_types":     string(eventTypesJSON),
		"destination_url": sub.DestinationURL,
		"secret":          sub.Secret,
		"status":          sub.Status.String(),
		"retry_count":     sub.RetryCount,
		"filters":         string(filtersJSON),
		"headers":         string(headersJSON),
		"properties":      string(propertiesJSON),
		"created_at":      sub.CreatedAt.Unix(),
		"updated_at":      sub.UpdatedAt.Unix(),
	}).Err()
	if err != nil {
		return fmt.Errorf("storing subscription: %w", err)
	}
	return nil
}

func fromHash(data map[string]string) (subscription.Subscription, error) {
	var eventTypes []string
	if s := data["event_types"]; s != "" {
		if err := json.Unmarshal([]byte(s), &eventTypes); err != nil {
			return subscription.Subscription{}, fmt.Errorf("unmarshaling event types: %w", err)
		}
	}
	var filters []subscription.Filter
	if s := data["filters"]; s != "" {
		if err := json.Unmarshal([]byte(s), &filters); err != nil {
			return subscription.Subscription{}, fmt.Errorf("unmarshaling filters: %w", err)
		}
	}
	headers := make(map[string]string)
	if s := data["headers"]; s != "" && s != "null" {
		if err := json.Unmarshal([]byte(s), &headers); err != nil {
			return subscription.Subscription{}, fmt.Errorf("unmarshaling headers: %w", err)
		}
	}
	properties := make(map[string]string)
	if s := data["properties"]; s != "" && s != "null" {
		if err := json.Unmarshal([]byte(s), &properties); err != nil {
			return subscription.Subscription{}, fmt.Errorf("unmarshaling properties: %w", err)
		}
	}

	return subscription.Subscription{
		ID:             data["id"],
		TenantID:       data["tenant_id"],
		Name:           data["name"],
		EventTypes:     eventTypes,
		DestinationURL: data["destination_url"],
		Secret:         data["secret"],
		Status:         subscription.NewStatus(data["status"]),
		RetryCount:     int(parseInt64(data["retry_count"])),
		Filters:        filters,
		Headers:        headers,
		Properties:     properties,
		CreatedAt:      time.Unix(parseInt64(data["created_at"]), 0),
		UpdatedAt:      time.Unix(parseInt64(data["updated_at"]), 0),
	}, nil
}

func parseInt64(s string) int64 {
	var result int64
	fmt.Sscanf(s, "%d", &result)
	return result
}
