package subscription

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

/* Loader provisions subscriptions from a subscriptions.yaml file
 * Used for static deployments where subscriptions are part of the
 * deployment artifact instead of managed through the API
 */

// FileConfig represents the structure of subscriptions.yaml
type FileConfig struct {
	Subscriptions []SubscriptionConfig `yaml:"subscriptions"`
}

// SubscriptionConfig represents a single subscription in the YAML file
type SubscriptionConfig struct {
	ID             string            `yaml:"id"`
	TenantID       string            `yaml:"tenant_id"`
	Name           string            `yaml:"name"`
	EventTypes     []string          `yaml:"event_types"`
	DestinationURL string            `yaml:"destination_url"`
	Secret         string            `yaml:"secret"`
	Status         string            `yaml:"status"`      // active (default) or suspended
	RetryCount     int               `yaml:"retry_count"` // 0 uses the deployment default
	Filters        []FilterConfig    `yaml:"filters"`
	Headers        map[string]string `yaml:"headers"`
	Properties     map[string]string `yaml:"properties"`
}

// FilterConfig represents a content filter in the YAML file
type FilterConfig struct {
	Expression string `yaml:"expression"`
	Format     string `yaml:"format"`
}

// Loader holds the loaded subscriptions
type Loader struct {
	subs []Subscription
}

// NewLoader creates a new subscription loader
func NewLoader() *Loader {
	return &Loader{}
}

// Load reads and parses the subscriptions.yaml file
func (l *Loader) Load(filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("reading subscriptions file: %w", err)
	}

	var cfg FileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("parsing subscriptions YAML: %w", err)
	}

	for _, sc := range cfg.Subscriptions {
		status := sc.Status
		if status == "" {
			status = "active"
		}

		sub := Subscription{
			ID:             sc.ID,
			TenantID:       sc.TenantID,
			Name:           sc.Name,
			EventTypes:     sc.EventTypes,
			DestinationURL: sc.DestinationURL,
			Secret:         sc.Secret,
			Status:         NewStatus(status),
			RetryCount:     sc.RetryCount,
			Headers:        sc.Headers,
			Properties:     sc.Properties,
		}
		for _, fc := range sc.Filters {
			sub.Filters = append(sub.Filters, Filter{
				Expression: fc.Expression,
				Format:     fc.Format,
			})
		}

		if err := sub.Validate(); err != nil {
			return fmt.Errorf("validating subscription: %w", err)
		}

		l.subs = append(l.subs, sub)
	}

	return nil
}

// List returns all loaded subscriptions
func (l *Loader) List() []Subscription {
	return l.subs
}

// Seed stores every loaded subscription through the writer, keeping
// file-provided IDs when present
func (l *Loader) Seed(ctx context.Context, w Writer) error {
	for _, sub := range l.subs {
		if _, err := w.Store(ctx, sub); err != nil {
			return fmt.Errorf("seeding subscription %s: %w", sub.Name, err)
		}
	}
	return nil
}
