package keyservice

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/mitchellh/mapstructure"

	"github.com/vdparikh/ffs/ffserr"
	"github.com/vdparikh/ffs/ffs"
	"github.com/vdparikh/ffs/log"
)

// Client talks to a key broker over HTTP, modeled on the request/
// response shapes a Lambda/Azure-function handler forwards from a
// Ubiq-style API: an access key and signing key pair authenticate each
// request, and each endpoint returns a small JSON envelope keyed by
// dataset name.
//
// Uses go-retryablehttp over go-cleanhttp's pooled transport so broker
// calls survive transient network failures without the caller having
// to implement its own retry loop.
type Client struct {
	baseURL    string
	accessKey  string
	signingKey string
	http       *retryablehttp.Client
	logger     log.Logger
}

// ClientOption configures optional Client behavior.
type ClientOption func(*Client)

// WithLogger injects l as the Client's logger. Without this option the
// Client logs nothing.
func WithLogger(l log.Logger) ClientOption {
	return func(c *Client) { c.logger = l }
}

// NewClient builds a Client pointed at baseURL (e.g. a deployed broker
// function's invoke URL), authenticating with accessKey/signingKey.
func NewClient(baseURL, accessKey, signingKey string, opts ...ClientOption) *Client {
	rc := retryablehttp.NewClient()
	rc.HTTPClient = cleanhttp.DefaultPooledClient()
	rc.RetryMax = 3
	rc.RetryWaitMin = 250 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second
	rc.Logger = nil

	c := &Client{
		baseURL:    baseURL,
		accessKey:  accessKey,
		signingKey: signingKey,
		http:       rc,
		logger:     log.Noop,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchDataset retrieves a dataset's Field Format Specification and
// decodes it into an ffs.Definition, mirroring fetch_ffs's response
// shape.
func (c *Client) FetchDataset(ctx context.Context, name string) (ffs.Definition, error) {
	var raw map[string]any
	if err := c.get(ctx, fmt.Sprintf("/fpe/def_keys?dataset_name=%s&papi=%s", name, c.accessKey), &raw); err != nil {
		c.logger.Field("dataset", name).Error(err).Message("fetch dataset failed")
		return ffs.Definition{}, err
	}
	def, err := DecodeDefinition(raw)
	if err != nil {
		c.logger.Field("dataset", name).Error(err).Message("decode dataset failed")
		return ffs.Definition{}, err
	}
	return def, nil
}

// KeyResponse is the decoded result of FetchKey: the broker's
// passphrase-protected private key PEM, and the single wrapped data
// key fetch_fpe_key returns, identified by KeyNumber. A dataset
// running in search mode (more than one historical key) is served
// from the local cache instead; this endpoint only ever returns the
// current key.
type KeyResponse struct {
	EncryptedPrivateKeyPEM []byte
	WrappedDataKey         []byte
	KeyNumber              int
}

// FetchKey retrieves the wrapped FF1 data key for a dataset, mirroring
// fetch_fpe_key's response shape. The caller still must supply the
// broker private key's passphrase and call UnwrapDataKey before
// building an ffs.KeySet.
func (c *Client) FetchKey(ctx context.Context, datasetName string) (KeyResponse, error) {
	var raw map[string]any
	if err := c.get(ctx, fmt.Sprintf("/fpe/def_keys?dataset_name=%s&papi=%s", datasetName, c.accessKey), &raw); err != nil {
		c.logger.Field("dataset", datasetName).Error(err).Message("fetch key failed")
		return KeyResponse{}, err
	}

	var w keyResponseWire
	if err := decodeInto(raw, &w); err != nil {
		return KeyResponse{}, err
	}

	wrapped, err := base64.StdEncoding.DecodeString(w.WrappedDataKey)
	if err != nil {
		return KeyResponse{}, fmt.Errorf("keyservice: decoding wrapped data key: %w", ffserr.ErrMalformedInput)
	}

	c.logger.Field("dataset", datasetName).Field("key_number", w.KeyNumber).Message("fetched key")
	return KeyResponse{
		EncryptedPrivateKeyPEM: []byte(w.EncryptedPrivateKey),
		WrappedDataKey:         wrapped,
		KeyNumber:              w.KeyNumber,
	}, nil
}

func (c *Client) get(ctx context.Context, path string, into any) error {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("keyservice: building request: %w", err)
	}
	req.SetBasicAuth(c.accessKey, c.signingKey)
	req.Header.Set("X-Request-Id", uuid.NewString())

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("keyservice: calling broker: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("keyservice: broker returned status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
		return fmt.Errorf("keyservice: decoding broker response: %w: %s", ffserr.ErrMalformedInput, err)
	}
	return nil
}

func decodeInto(raw map[string]any, out any) error {
	if err := mapstructure.Decode(raw, out); err != nil {
		return fmt.Errorf("keyservice: %w: %s", ffserr.ErrMalformedInput, err)
	}
	return nil
}
