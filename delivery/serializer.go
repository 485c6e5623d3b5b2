package delivery

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"net/url"
	"sort"
	"time"

	"github.com/marcelsud/webhook-dispatch/webhook"
)

/* Format represents the wire format a webhook body is serialized to
 * JSON is the deployment default; XML and Form are for receivers that
 * can't take JSON
 */
type Format int

const (
	JSON Format = iota + 1
	XML
	Form
)

// String returns the string representation of the format
func (f Format) String() string {
	switch f {
	case JSON:
		return "json"
	case XML:
		return "xml"
	case Form:
		return "form"
	default:
		return "unknown"
	}
}

// NewFormat creates a Format from a string
func NewFormat(s string) Format {
	switch s {
	case "xml":
		return XML
	case "form":
		return Form
	default:
		return JSON
	}
}

// Validate checks if the format is valid
func (f Format) Validate() error {
	if f < JSON || f > Form {
		return fmt.Errorf("invalid format: %d", f)
	}
	return nil
}

// ContentType returns the HTTP content type for the format
func (f Format) ContentType() string {
	switch f {
	case XML:
		return "text/xml"
	case Form:
		return "application/x-www-form-urlencoded"
	default:
		return "application/json"
	}
}

/* Serialize produces the wire payload for a webhook:
 * { "webhook": <name>, "eventId": <id>, "eventType": <type>,
 *   "timeStamp": <ISO-8601>, ...extension fields from data... }
 * Extension fields come from the webhook data when it is an object;
 * non-object data (e.g. a batch array) is carried under "data"
 */
func Serialize(wh webhook.Webhook, format Format) ([]byte, error) {
	fields := envelope(wh)

	switch format {
	case JSON:
		body, err := json.Marshal(fields)
		if err != nil {
			return nil, fmt.Errorf("marshaling webhook to JSON: %w", err)
		}
		return body, nil
	case XML:
		return marshalXML(fields)
	case Form:
		return marshalForm(fields)
	default:
		return nil, fmt.Errorf("invalid format: %d", format)
	}
}

func envelope(wh webhook.Webhook) map[string]any {
	fields := map[string]any{
		"webhook":   wh.Name,
		"eventId":   wh.ID,
		"eventType": wh.EventType,
		"timeStamp": wh.Timestamp.UTC().Format(time.RFC3339),
	}

	switch data := wh.Data.(type) {
	case nil:
	case map[string]any:
		for k, v := range data {
			if _, reserved := fields[k]; reserved {
				continue
			}
			fields[k] = v
		}
	default:
		fields["data"] = data
	}

	return fields
}

func marshalXML(fields map[string]any) ([]byte, error) {
	type xmlEntry struct {
		XMLName xml.Name
		Value   string `xml:",chardata"`
	}
	type xmlWebhook struct {
		XMLName xml.Name `xml:"webhook"`
		Entries []xmlEntry
	}

	doc := xmlWebhook{}
	for _, key := range sortedKeys(fields) {
		value, err := stringify(fields[key])
		if err != nil {
			return nil, err
		}
		doc.Entries = append(doc.Entries, xmlEntry{
			XMLName: xml.Name{Local: key},
			Value:   value,
		})
	}

	body, err := xml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshaling webhook to XML: %w", err)
	}
	return body, nil
}

func marshalForm(fields map[string]any) ([]byte, error) {
	values := url.Values{}
	for _, key := range sortedKeys(fields) {
		value, err := stringify(fields[key])
		if err != nil {
			return nil, err
		}
		values.Set(key, value)
	}
	return []byte(values.Encode()), nil
}

func sortedKeys(fields map[string]any) []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func stringify(v any) (string, error) {
	switch value := v.(type) {
	case string:
		return value, nil
	default:
		encoded, err := json.Marshal(value)
		if err != nil {
			return "", fmt.Errorf("encoding field value: %w", err)
		}
		return string(encoded), nil
	}
}
