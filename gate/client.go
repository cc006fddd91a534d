// Copyright 2026 The Watchtower Authors
// SPDX-License-Identifier: Apache-2.0

package gate

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/emberhold/watchtower/lib/codec"
	"github.com/emberhold/watchtower/lib/netutil"
	"github.com/emberhold/watchtower/presence"
)

// Wire formats the gate negotiates via Accept / Content-Type.
const (
	ContentTypeCBOR = "application/cbor"
	ContentTypeJSON = "application/json"
)

// Encoding values for ClientConfig.Encoding.
const (
	// EncodingCBOR prefers CBOR but accepts a JSON answer from a
	// gate that cannot serve it.
	EncodingCBOR = "cbor"
	// EncodingJSON requests JSON only. Useful when inspecting
	// traffic by hand.
	EncodingJSON = "json"
)

// DefaultRequestTimeout bounds a gate request end to end when the
// caller supplies no HTTP client of their own. The synchronizer may
// layer a tighter per-fetch deadline on top via context.
const DefaultRequestTimeout = 10 * time.Second

var defaultHTTPClient = &http.Client{Timeout: DefaultRequestTimeout}

// zstdDecoder is shared across requests; zstd.Decoder is safe for
// concurrent use. Its memory ceiling matches the response read bound
// so a compressed body cannot expand past what an uncompressed one
// could deliver.
var zstdDecoder *zstd.Decoder

func init() {
	var err error
	zstdDecoder, err = zstd.NewReader(nil,
		zstd.WithDecoderMaxMemory(uint64(netutil.MaxResponseSize)),
	)
	if err != nil {
		panic("gate: zstd decoder initialization failed: " + err.Error())
	}
}

// ClientConfig holds configuration for creating a Client.
type ClientConfig struct {
	// BaseURL is the root of the gate API (e.g.,
	// "https://gate.emberhold.example").
	BaseURL string

	// HTTPClient is used for all requests. If nil, a shared client
	// with a DefaultRequestTimeout overall timeout is used.
	HTTPClient *http.Client

	// Logger is used for structured logging. If nil, slog.Default()
	// is used.
	Logger *slog.Logger

	// Encoding selects the wire format: EncodingCBOR (default) or
	// EncodingJSON.
	Encoding string

	// DisableCompression turns off zstd transport compression.
	DisableCompression bool
}

// Client fetches realm presence from the gate. It is safe for
// concurrent use and implements presence.Source.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	logger      *slog.Logger
	accept      string
	compression bool
}

var _ presence.Source = (*Client)(nil)

// NewClient creates a gate client.
func NewClient(config ClientConfig) (*Client, error) {
	if config.BaseURL == "" {
		return nil, fmt.Errorf("gate: BaseURL is required")
	}

	// Validate the URL structure. The string form (trailing slash
	// stripped) is stored and request URLs are built by direct
	// concatenation.
	if _, err := url.Parse(config.BaseURL); err != nil {
		return nil, fmt.Errorf("gate: invalid BaseURL %q: %w", config.BaseURL, err)
	}

	encoding := config.Encoding
	if encoding == "" {
		encoding = EncodingCBOR
	}
	var accept string
	switch encoding {
	case EncodingCBOR:
		accept = ContentTypeCBOR + ", " + ContentTypeJSON
	case EncodingJSON:
		accept = ContentTypeJSON
	default:
		return nil, fmt.Errorf("gate: unknown encoding %q", config.Encoding)
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = defaultHTTPClient
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:     strings.TrimRight(config.BaseURL, "/"),
		httpClient:  httpClient,
		logger:      logger,
		accept:      accept,
		compression: !config.DisableCompression,
	}, nil
}

// CloseIdleConnections closes idle HTTP connections in the underlying
// transport's pool. Call after a network disruption to force fresh
// TCP connections instead of reusing a poisoned pooled one.
func (c *Client) CloseIdleConnections() {
	c.httpClient.CloseIdleConnections()
}

// FetchSnapshot implements presence.Source: one full presence read
// for a realm. On 2xx the negotiated payload decodes into a
// presence.Snapshot; on anything else the structured gate error
// comes back as a *Error.
func (c *Client) FetchSnapshot(ctx context.Context, realmID string, limit int) (*presence.Snapshot, error) {
	if realmID == "" {
		return nil, fmt.Errorf("gate: realm ID is required")
	}

	requestURL := c.baseURL + "/v1/realms/" + url.PathEscape(realmID) + "/presence"
	if limit > 0 {
		requestURL += "?limit=" + strconv.Itoa(limit)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("gate: failed to create request: %w", err)
	}
	request.Header.Set("Accept", c.accept)
	if c.compression {
		request.Header.Set("Accept-Encoding", "zstd")
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("gate: presence request for realm %s failed: %w", realmID, err)
	}
	defer response.Body.Close()

	body, err := netutil.ReadResponse(response.Body)
	if err != nil {
		return nil, fmt.Errorf("gate: failed to read response body: %w", err)
	}
	if response.Header.Get("Content-Encoding") == "zstd" {
		body, err = zstdDecoder.DecodeAll(body, nil)
		if err != nil {
			return nil, fmt.Errorf("gate: failed to decompress response: %w", err)
		}
	}

	contentType := responseContentType(response)

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return nil, decodeError(response.StatusCode, contentType, body)
	}

	snapshot := &presence.Snapshot{}
	switch contentType {
	case ContentTypeCBOR:
		if err := codec.Unmarshal(body, snapshot); err != nil {
			return nil, fmt.Errorf("gate: failed to decode CBOR snapshot: %w", err)
		}
	case ContentTypeJSON, "":
		if err := json.Unmarshal(body, snapshot); err != nil {
			return nil, fmt.Errorf("gate: failed to decode JSON snapshot: %w", err)
		}
	default:
		return nil, fmt.Errorf("gate: unexpected content type %q", contentType)
	}

	c.logger.Debug("presence snapshot fetched",
		"realm", realmID,
		"status", response.StatusCode,
		"content_type", contentType,
		"bytes", len(body),
	)
	return snapshot, nil
}

// responseContentType extracts the bare media type from the response,
// dropping parameters like charset.
func responseContentType(response *http.Response) string {
	header := response.Header.Get("Content-Type")
	if header == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(header)
	if err != nil {
		return header
	}
	return mediaType
}

// decodeError turns a non-2xx response into a *Error. Gate error
// payloads use the same {code, message} shape in both wire formats. A
// body that does not parse — a proxy or load balancer answering in
// the gate's place — still produces a *Error carrying the status and
// the raw text, so a bare 403 classifies as a denial and nothing is
// swallowed.
func decodeError(statusCode int, contentType string, body []byte) error {
	gateErr := &Error{}
	var parseErr error
	switch contentType {
	case ContentTypeCBOR:
		parseErr = codec.Unmarshal(body, gateErr)
	default:
		parseErr = json.Unmarshal(body, gateErr)
	}
	if parseErr != nil || gateErr.Code == "" {
		return &Error{
			Code:       codeForStatus(statusCode),
			Message:    strings.TrimSpace(string(body)),
			StatusCode: statusCode,
		}
	}
	gateErr.StatusCode = statusCode
	return gateErr
}

// codeForStatus maps a bare HTTP status to the closest gate code, for
// responses whose body carried no structured error.
func codeForStatus(statusCode int) string {
	switch statusCode {
	case http.StatusForbidden:
		return CodeReconRequired
	case http.StatusNotFound:
		return CodeRealmNotFound
	case http.StatusTooManyRequests:
		return CodeRateLimited
	default:
		return CodeInternal
	}
}
