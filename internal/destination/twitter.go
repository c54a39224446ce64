package destination

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"tina/internal/collections"
	"tina/internal/router"
	"tina/internal/telemetry/logging"
)

const (
	twitterAPIURL            = "https://api.twitter.com/1.1/statuses/update.json"
	twitterInvalidTweetCode  = 186
	twitterDuplicatedCode    = 187
	replyCorrelationCapacity = 16
)

// TwitterCredentials are the four OAuth1 tokens needed to sign a status
// update call.
type TwitterCredentials struct {
	ConsumerKey    string
	ConsumerSecret string
	AccessKey      string
	AccessSecret   string
}

// TwitterWorker posts the short-form summary as a status update,
// reply-chaining consecutive updates for the same earthquake when
// enabled.
type TwitterWorker struct {
	creds       TwitterCredentials
	client      *http.Client
	logger      logging.Logger
	replyChain  bool
	lastMessage *collections.KeyedLRUMap[string, uint64]
	apiURL      string
	metrics     *Metrics
}

// SetMetrics attaches the shared delivery counters.
func (w *TwitterWorker) SetMetrics(m *Metrics) { w.metrics = m }

// NewTwitterWorker constructs a TwitterWorker. replyChain enables
// in_reply_to_status_id threading via a per-id correlation cache.
func NewTwitterWorker(creds TwitterCredentials, replyChain bool, logger logging.Logger) *TwitterWorker {
	if logger == nil {
		logger = logging.New(nil)
	}
	return &TwitterWorker{
		creds:       creds,
		client:      &http.Client{Timeout: 10 * time.Second},
		logger:      logger,
		replyChain:  replyChain,
		lastMessage: collections.NewKeyedLRUMap[string, uint64](replyCorrelationCapacity),
		apiURL:      twitterAPIURL,
	}
}

func (w *TwitterWorker) Run(ctx context.Context, deliveries <-chan router.Delivery) {
	RunLoop(ctx, deliveries, func(ctx context.Context, d router.Delivery) {
		text, ok := FormatShort(d.Latest, d.Previous)
		if !ok {
			return
		}

		var inReplyTo *uint64
		if w.replyChain {
			if id, present := w.lastMessage.Get(d.Latest.ID); present {
				inReplyTo = &id
			}
		}

		msgID, err := w.updateStatus(ctx, text, inReplyTo)
		if err != nil {
			derr, _ := err.(*DeliveryError)
			if derr != nil && derr.Kind == ErrDuplicated {
				// Already delivered under this exact text; leave the
				// correlation map untouched and treat as success.
				w.logger.ErrorCtx(ctx, "twitter delivery duplicated", slog.String("id", d.Latest.ID), slog.String("delivery", d.DeliveryID))
				w.metrics.observe("twitter", nil)
				return
			}
			w.logger.ErrorCtx(ctx, "twitter delivery failed", slog.String("error", err.Error()), slog.String("id", d.Latest.ID), slog.String("delivery", d.DeliveryID))
			w.metrics.observe("twitter", err)
			return
		}
		w.metrics.observe("twitter", nil)

		if w.replyChain {
			w.lastMessage.Upsert(d.Latest.ID, msgID)
		}
	})
}

// updateStatus posts a single status update, signing the request with
// OAuth1 HMAC-SHA1 over exactly the parameter set that is also sent as
// the form body (status and, when present, in_reply_to_status_id).
func (w *TwitterWorker) updateStatus(ctx context.Context, message string, inReplyTo *uint64) (uint64, error) {
	params := map[string]string{"status": message}
	if inReplyTo != nil {
		params["in_reply_to_status_id"] = strconv.FormatUint(*inReplyTo, 10)
	}

	form := url.Values{}
	for k, v := range params {
		form.Set(k, v)
	}

	authHeader, err := w.signRequest(http.MethodPost, w.apiURL, params)
	if err != nil {
		return 0, newDeliveryError(ErrUnknown, err.Error())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.apiURL, strings.NewReader(form.Encode()))
	if err != nil {
		return 0, newDeliveryError(ErrNetwork, err.Error())
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", authHeader)

	resp, err := w.client.Do(req)
	if err != nil {
		return 0, newDeliveryError(ErrNetwork, err.Error())
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	switch resp.StatusCode {
	case http.StatusOK:
		var parsed struct {
			ID uint64 `json:"id"`
		}
		if err := json.Unmarshal(body, &parsed); err != nil {
			return 0, newDeliveryError(ErrInvalidResponse, err.Error())
		}
		return parsed.ID, nil

	case http.StatusForbidden:
		var parsed struct {
			Errors []struct {
				Code int `json:"code"`
			} `json:"errors"`
		}
		_ = json.Unmarshal(body, &parsed)
		if len(parsed.Errors) > 0 {
			switch parsed.Errors[0].Code {
			case twitterInvalidTweetCode:
				return 0, newDeliveryError(ErrInvalidTweet, string(body))
			case twitterDuplicatedCode:
				return 0, newDeliveryError(ErrDuplicated, string(body))
			}
		}
		return 0, newDeliveryError(ErrUnknown, string(body))

	case http.StatusTooManyRequests:
		return 0, newDeliveryError(ErrRateLimited, string(body))

	case http.StatusUnauthorized:
		return 0, newDeliveryError(ErrUnauthorized, string(body))

	default:
		return 0, newDeliveryError(ErrUnknown, fmt.Sprintf("unknown status: %d", resp.StatusCode))
	}
}

// signRequest builds the OAuth1 Authorization header for a POST to url
// whose request parameters are exactly extraParams (the same set the
// caller sends as the form body): the signed parameter set must match
// the sent set exactly, or Twitter rejects the signature.
func (w *TwitterWorker) signRequest(method, rawURL string, extraParams map[string]string) (string, error) {
	nonce, err := randomNonce()
	if err != nil {
		return "", err
	}
	timestamp := strconv.FormatInt(time.Now().Unix(), 10)

	oauthParams := map[string]string{
		"oauth_consumer_key":     w.creds.ConsumerKey,
		"oauth_nonce":            nonce,
		"oauth_signature_method": "HMAC-SHA1",
		"oauth_timestamp":        timestamp,
		"oauth_token":            w.creds.AccessKey,
		"oauth_version":          "1.0",
	}

	all := make(map[string]string, len(oauthParams)+len(extraParams))
	for k, v := range oauthParams {
		all[k] = v
	}
	for k, v := range extraParams {
		all[k] = v
	}

	signature := signatureFor(method, rawURL, all, w.creds.ConsumerSecret, w.creds.AccessSecret)
	oauthParams["oauth_signature"] = signature

	keys := make([]string, 0, len(oauthParams))
	for k := range oauthParams {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("OAuth ")
	for i, k := range keys {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s=%q", percentEncode(k), percentEncode(oauthParams[k]))
	}
	return b.String(), nil
}

func signatureFor(method, rawURL string, params map[string]string, consumerSecret, tokenSecret string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, percentEncode(k)+"="+percentEncode(params[k]))
	}
	paramString := strings.Join(pairs, "&")

	baseString := strings.ToUpper(method) + "&" + percentEncode(rawURL) + "&" + percentEncode(paramString)
	signingKey := percentEncode(consumerSecret) + "&" + percentEncode(tokenSecret)

	mac := hmac.New(sha1.New, []byte(signingKey))
	mac.Write([]byte(baseString))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// percentEncode is the RFC 5849 parameter encoding: every byte outside
// the RFC 3986 unreserved set (ALPHA / DIGIT / "-" / "." / "_" / "~") is
// escaped as uppercase %XX, with space as %20 and never "+". The
// form-style url.QueryEscape must not be used here: a "+" for space in
// the base string makes the signature verify against different bytes
// than the provider recomputes.
func percentEncode(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9',
			c == '-', c == '.', c == '_', c == '~':
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, "%%%02X", c)
		}
	}
	return b.String()
}

func randomNonce() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
