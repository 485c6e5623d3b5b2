package delivery

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/marcelsud/webhook-dispatch/webhook"
	"github.com/marcelsud/webhook-dispatch/webhook/signature"
)

// SignatureLocation selects where the request signature is attached
type SignatureLocation int

const (
	SignatureInHeader SignatureLocation = iota + 1
	SignatureInQuery
)

// NewSignatureLocation creates a SignatureLocation from a string
func NewSignatureLocation(s string) SignatureLocation {
	if s == "query" {
		return SignatureInQuery
	}
	return SignatureInHeader
}

// Defaults for the sender options
const (
	DefaultMaxAttempts  = 3
	DefaultBackoffUnit  = time.Second
	DefaultHeaderName   = "X-Webhook-Signature"
	DefaultSigParam     = "sig"
	DefaultSigAlgParam  = "sig_alg"
	DefaultRequestLimit = 30 * time.Second
)

/* Options configure the sender per deployment
 * Zero values fall back to the defaults above
 */
type Options struct {
	// SignWebhooks enables request signing when the webhook carries a secret
	SignWebhooks bool
	// Algorithm names the signing algorithm, resolved case-insensitively
	Algorithm string
	// Location selects header or query-string signature placement
	Location SignatureLocation
	// HeaderName carries the signature in header placement
	HeaderName string
	// SignatureParam and AlgorithmParam carry the signature in query placement
	SignatureParam string
	AlgorithmParam string
	// MaxAttempts bounds delivery attempts unless the webhook overrides it
	MaxAttempts int
	// BackoffUnit scales the triangular backoff schedule
	BackoffUnit time.Duration
	// RequestTimeout bounds each individual attempt
	RequestTimeout time.Duration
	// Format selects the wire format, JSON by default
	Format Format
	// DefaultHeaders are merged onto every request before webhook headers
	DefaultHeaders map[string]string
}

/* Sender serializes, signs, and delivers webhooks over HTTP under a
 * bounded retry policy. Delivery failure is never an error: it is
 * captured in the returned Result. Errors are reserved for
 * programming and configuration mistakes
 * Holds no cross-call mutable state; safe for concurrent use
 */
type Sender struct {
	client  *http.Client
	signers *signature.Registry
	opts    Options
	log     *slog.Logger
}

// NewSender creates a sender with the given options
func NewSender(client *http.Client, signers *signature.Registry, opts Options, log *slog.Logger) *Sender {
	if client == nil {
		client = &http.Client{}
	}
	if signers == nil {
		signers = signature.DefaultRegistry()
	}
	if log == nil {
		log = slog.New(slog.NewJSONHandler(os.Stdout, nil))
	}
	if opts.Algorithm == "" {
		opts.Algorithm = signature.SHA256
	}
	if opts.Location == 0 {
		opts.Location = SignatureInHeader
	}
	if opts.HeaderName == "" {
		opts.HeaderName = DefaultHeaderName
	}
	if opts.SignatureParam == "" {
		opts.SignatureParam = DefaultSigParam
	}
	if opts.AlgorithmParam == "" {
		opts.AlgorithmParam = DefaultSigAlgParam
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.BackoffUnit <= 0 {
		opts.BackoffUnit = DefaultBackoffUnit
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = DefaultRequestLimit
	}
	if opts.Format == 0 {
		opts.Format = JSON
	}

	return &Sender{
		client:  client,
		signers: signers,
		opts:    opts,
		log:     log,
	}
}

/* Send delivers one webhook, retrying failed attempts under the backoff
 * schedule. The returned Result always carries every attempt made, even
 * when Send returns early because the context was cancelled
 */
func (s *Sender) Send(ctx context.Context, wh webhook.Webhook) (Result, error) {
	result := Result{Webhook: wh}

	body, err := Serialize(wh, s.opts.Format)
	if err != nil {
		return result, fmt.Errorf("serializing webhook %s: %w", wh.ID, err)
	}

	destination, headers, err := s.prepare(wh, body)
	if err != nil {
		return result, err
	}

	maxAttempts := s.opts.MaxAttempts
	if wh.RetryCount > 0 {
		maxAttempts = wh.RetryCount
	}

	for i := 0; i < maxAttempts; i++ {
		if i > 0 {
			if err := s.wait(ctx, backoff(i, s.opts.BackoffUnit)); err != nil {
				return result, err
			}
		}

		attempt := s.attempt(ctx, i+1, destination, headers, body)
		result.Attempts = append(result.Attempts, attempt)

		if !attempt.Failed() {
			break
		}

		s.log.WarnContext(ctx, "webhook delivery attempt failed",
			slog.String("webhook_id", wh.ID),
			slog.String("subscription_id", wh.SubscriptionID),
			slog.Int("attempt", attempt.Number),
			slog.Int("response_code", attempt.ResponseCode),
			slog.Bool("timed_out", attempt.TimedOut),
		)
	}

	return result, nil
}

/* prepare resolves the destination URL, signs the body, and merges the
 * header set. Failures here are configuration errors and fail fast
 */
func (s *Sender) prepare(wh webhook.Webhook, body []byte) (string, http.Header, error) {
	destination, err := url.Parse(wh.DestinationURL)
	if err != nil || destination.Scheme == "" || destination.Host == "" {
		return "", nil, fmt.Errorf("malformed destination URL for webhook %s: %s", wh.ID, wh.DestinationURL)
	}

	headers := http.Header{}
	headers.Set("Content-Type", s.opts.Format.ContentType())

	if s.opts.SignWebhooks && wh.Secret != "" {
		signer, err := s.signers.Resolve(s.opts.Algorithm)
		if err != nil {
			return "", nil, fmt.Errorf("resolving signer: %w", err)
		}
		sig, err := signer.Sign(body, wh.Secret)
		if err != nil {
			return "", nil, fmt.Errorf("signing webhook %s: %w", wh.ID, err)
		}

		switch s.opts.Location {
		case SignatureInQuery:
			query := destination.Query()
			query.Set(s.opts.SignatureParam, strings.TrimPrefix(sig, signer.Algorithm()+"="))
			query.Set(s.opts.AlgorithmParam, signer.Algorithm())
			destination.RawQuery = query.Encode()
		default:
			headers.Set(s.opts.HeaderName, sig)
		}
	}

	for key, value := range s.opts.DefaultHeaders {
		headers.Set(key, value)
	}

	// Subscription headers never override transport-reserved headers
	for key, value := range wh.Headers {
		if reservedHeader(key, s.opts.HeaderName) {
			return "", nil, fmt.Errorf("webhook %s header %q collides with a reserved transport header", wh.ID, key)
		}
		headers.Set(key, value)
	}

	return destination.String(), headers, nil
}

// attempt executes one HTTP POST and classifies the outcome
func (s *Sender) attempt(ctx context.Context, number int, destination string, headers http.Header, body []byte) Attempt {
	attempt := Attempt{
		Number:    number,
		StartedAt: time.Now().UTC(),
	}

	reqCtx, cancel := context.WithTimeout(ctx, s.opts.RequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, destination, bytes.NewReader(body))
	if err != nil {
		attempt.EndedAt = time.Now().UTC()
		attempt.ResponseMessage = err.Error()
		return attempt
	}
	req.Header = headers.Clone()

	resp, err := s.client.Do(req)
	attempt.EndedAt = time.Now().UTC()

	if err != nil {
		attempt.ResponseMessage = err.Error()
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			attempt.TimedOut = true
		}
		return attempt
	}
	defer resp.Body.Close()

	attempt.ResponseCode = resp.StatusCode
	attempt.ResponseMessage = resp.Status
	if resp.StatusCode == http.StatusRequestTimeout {
		attempt.TimedOut = true
	}

	return attempt
}

// wait blocks for the backoff delay, aborting on cancellation
func (s *Sender) wait(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// backoff returns the wait before attempt i (0-indexed): i*(i+1) units,
// a short triangular schedule of 0, 2, 6, 12, ...
func backoff(i int, unit time.Duration) time.Duration {
	return time.Duration(i*(i+1)) * unit
}

func isTimeout(err error) bool {
	var timeout interface{ Timeout() bool }
	return errors.As(err, &timeout) && timeout.Timeout()
}

func reservedHeader(key, signatureHeader string) bool {
	switch {
	case strings.EqualFold(key, "Content-Type"),
		strings.EqualFold(key, "Content-Length"),
		strings.EqualFold(key, "Host"),
		strings.EqualFold(key, signatureHeader):
		return true
	}
	return false
}
