package request

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"code.hybscloud.com/atomix"
	"go.uber.org/zap"

	"github.com/Southclaws/pawn-requests/errors"
	"github.com/Southclaws/pawn-requests/executor"
	"github.com/Southclaws/pawn-requests/host"
	"github.com/Southclaws/pawn-requests/jsonvalue"
	"github.com/Southclaws/pawn-requests/pool"
)

// DefaultFailureCallback is invoked when a request fails in transport.
const DefaultFailureCallback = "OnRequestFailure"

// DefaultTimeout bounds a whole request including reading the body.
const DefaultTimeout = 30 * time.Second

// Caller delivers results to the script. *host.Bridge implements it.
type Caller interface {
	Call(name string, args ...host.Arg) error
}

// Nodes stores parsed JSON bodies for the duration of a callback.
// *pool.GCPool[*jsonvalue.Value] implements it.
type Nodes interface {
	Alloc(v *jsonvalue.Value) pool.Handle
	Collect(h pool.Handle) bool
}

// Request is one call issued by a script.
type Request struct {
	Callback string
	Path     string
	Method   Method
	Headers  http.Header
	Body     string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the logger used by the client's tasks.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.log = l }
}

// WithFailureCallback renames the transport failure callback.
func WithFailureCallback(name string) Option {
	return func(c *Client) { c.failure = name }
}

// Client issues requests against one endpoint.
type Client struct {
	endpoint *url.URL
	headers  http.Header
	exec     *executor.Context
	http     *http.Client
	caller   Caller
	nodes    Nodes
	failure  string
	log      *zap.Logger
	seq      atomix.Uint32
}

// New validates endpoint and creates the client's execution context.
// headers is applied to every request; the client keeps its own copy.
func New(factory executor.Factory, endpoint string, headers http.Header, caller Caller, nodes Nodes, opts ...Option) (*Client, error) {
	u, err := parseEndpoint(endpoint)
	if err != nil {
		return nil, err
	}

	c := &Client{
		endpoint: u,
		headers:  canonical(headers),
		caller:   caller,
		nodes:    nodes,
		failure:  DefaultFailureCallback,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: DefaultTimeout}
	}
	if c.log == nil {
		c.log = Logger()
	}
	c.log = c.log.With(zap.String("endpoint", u.String()))

	exec, err := factory.New()
	if err != nil {
		return nil, err
	}
	c.exec = exec
	return c, nil
}

func parseEndpoint(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, errors.InvalidURL(errors.PhaseConstruct, raw, err)
	}
	if !u.IsAbs() || u.Host == "" {
		return nil, errors.InvalidURL(errors.PhaseConstruct, raw, nil)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return nil, errors.UnsupportedScheme(errors.PhaseConstruct, raw, u.Scheme)
	}
	return u, nil
}

func canonical(h http.Header) http.Header {
	out := make(http.Header, len(h))
	for k, vs := range h {
		key := http.CanonicalHeaderKey(k)
		out[key] = append(out[key], vs...)
	}
	return out
}

// Endpoint returns the base URL.
func (c *Client) Endpoint() string {
	return c.endpoint.String()
}

// Resolve combines the endpoint with a request path. The path and query of
// the result come from path; the endpoint contributes scheme, userinfo and
// host.
func (c *Client) Resolve(path string) (string, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return "", errors.InvalidURL(errors.PhaseDispatch, path, err)
	}
	if ref.IsAbs() || ref.Host != "" {
		return "", errors.InvalidInput(errors.PhaseDispatch, "request path must not carry a scheme or host")
	}
	u := *c.endpoint
	u.Path = ref.Path
	u.RawPath = ref.RawPath
	if !strings.HasPrefix(u.Path, "/") {
		u.Path = "/" + u.Path
		if u.RawPath != "" {
			u.RawPath = "/" + u.RawPath
		}
	}
	u.RawQuery = ref.RawQuery
	u.Fragment = ""
	return u.String(), nil
}

// Merge returns the base headers overlaid with extra. A name present in
// extra replaces every base value for that name.
func (c *Client) Merge(extra http.Header) http.Header {
	out := c.headers.Clone()
	if out == nil {
		out = make(http.Header)
	}
	for k, vs := range canonical(extra) {
		out[k] = vs
	}
	return out
}

// Do schedules req and returns its id. asJSON delivers the body as a JSON
// node instead of text.
func (c *Client) Do(req Request, asJSON bool) (int32, error) {
	if !req.Method.Valid() {
		return -1, errors.New(errors.PhaseDispatch, errors.KindInvalidInput).
			Value(int32(req.Method)).
			Detail("unknown method code %d", int32(req.Method)).
			Build()
	}
	if c.exec.Closed() {
		return -1, errors.ErrClosed
	}
	target, err := c.Resolve(req.Path)
	if err != nil {
		return -1, err
	}
	headers := c.Merge(req.Headers)

	id := int32(c.seq.Add(1) - 1)
	spawned := c.exec.Go("request", func(ctx context.Context) {
		c.run(ctx, id, req, target, headers, asJSON)
	})
	if !spawned {
		return -1, errors.ErrClosed
	}
	return id, nil
}

func (c *Client) run(ctx context.Context, id int32, req Request, target string, headers http.Header, asJSON bool) {
	log := c.log.With(zap.Int32("id", id), zap.String("method", req.Method.String()), zap.String("url", target))

	var body io.Reader = http.NoBody
	if req.Body != "" {
		body = strings.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method.String(), target, body)
	if err != nil {
		c.fail(log, id, target, err)
		return
	}
	httpReq.Header = headers

	resp, err := c.http.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			log.Debug("request abandoned, client closed")
			return
		}
		c.fail(log, id, target, err)
		return
	}

	data, readErr := io.ReadAll(resp.Body)
	// Close error is irrelevant once the body has been read
	_ = resp.Body.Close()

	var text string
	switch {
	case readErr != nil:
		log.Warn("failed to read response body", zap.Error(readErr))
	case !utf8.Valid(data):
		log.Warn("response body discarded", zap.Error(errors.InvalidUTF8(errors.PhaseTransport, data)))
	default:
		text = string(data)
	}
	status := int32(resp.StatusCode)

	if !asJSON {
		_ = c.caller.Call(req.Callback, host.Int(id), host.Int(status), host.String(text))
		return
	}

	node, err := jsonvalue.ParseString(text)
	if err != nil {
		log.Error("response is not valid JSON, callback skipped", zap.Error(err))
		return
	}
	h := c.nodes.Alloc(node)
	if !h.Valid() {
		log.Error("json pool exhausted, callback skipped")
		return
	}
	_ = c.caller.Call(req.Callback, host.Int(id), host.Int(status), host.Handle(h))
	// A callback that turned retain off keeps the node.
	c.nodes.Collect(h)
}

func (c *Client) fail(log *zap.Logger, id int32, target string, err error) {
	terr := errors.Transport(target, err)
	log.Warn("request failed", zap.Error(terr))
	_ = c.caller.Call(c.failure, host.Int(id), host.Int(-1), host.String(err.Error()))
}

// Closed reports whether Close has been called.
func (c *Client) Closed() bool {
	return c.exec.Closed()
}

// Close tears down the execution context. In-flight requests are
// abandoned without invoking any callback.
func (c *Client) Close() {
	c.exec.Close()
}

// Wait blocks until every in-flight request task has returned.
func (c *Client) Wait() {
	c.exec.Wait()
}

// Drop implements pool.Dropper.
func (c *Client) Drop() {
	if c != nil {
		c.Close()
	}
}
