package narrative

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/vk/loom/internal/ctxlog"
	"github.com/vk/loom/internal/dom"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// DefaultStepEvent is the socket.io event carrying step notifications.
const DefaultStepEvent = "story:step"

// stepMessage is the wire form of a step notification. ID names the step
// element; without it the element is found by data-step.
type stepMessage struct {
	ID        string `json:"id"`
	Index     int    `json:"index"`
	Step      string `json:"step"`
	Direction string `json:"direction"`
}

// SocketIOSource receives step notifications from a socket.io server, for
// pages whose scroll stepping happens outside this process (a browser
// preview, a presenter remote).
type SocketIOSource struct {
	URL                string
	Namespace          string
	Event              string
	InsecureSkipVerify bool
	ConnectTimeout     time.Duration
	// Doc is the page whose step elements the messages refer to.
	Doc *dom.Document
}

// Subscribe connects, then hands every well-formed step message to handle
// on the calling goroutine until ctx ends.
func (s *SocketIOSource) Subscribe(ctx context.Context, handle HandleFunc) error {
	logger := ctxlog.FromContext(ctx).With("source", "socketio", "url", s.URL)
	logger.Info("Connecting to step source...")

	parsedURL, err := url.Parse(s.URL)
	if err != nil {
		return fmt.Errorf("failed to parse URL: %w", err)
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return fmt.Errorf("step source URL %q must be absolute", s.URL)
	}

	opts := socket.DefaultOptions()
	if parsedURL.Path != "" && parsedURL.Path != "/" {
		opts.SetPath(parsedURL.Path)
	}
	if s.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification")
		opts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	manager := socket.NewManager(baseURL, opts)
	namespace := s.Namespace
	if namespace == "" {
		namespace = "/"
	}
	io := manager.Socket(namespace, opts)
	defer io.Disconnect()

	event := s.Event
	if event == "" {
		event = DefaultStepEvent
	}

	messages := make(chan StepNotification, 64)
	err = io.On(types.EventName(event), func(args ...any) {
		if len(args) == 0 {
			return
		}
		n, err := s.decode(args[0])
		if err != nil {
			logger.Debug("Ignoring malformed step message.", "error", err)
			return
		}
		select {
		case messages <- n:
		case <-ctx.Done():
		}
	})
	if err != nil {
		return fmt.Errorf("failed to listen for %q: %w", event, err)
	}

	connectChan := make(chan error, 1)
	io.Once(types.EventName("connect"), func(...any) {
		logger.Info("Successfully connected", "sid", io.Id())
		connectChan <- nil
	})
	io.Once(types.EventName("connect_error"), func(errs ...any) {
		err := fmt.Errorf("connect error")
		if len(errs) > 0 {
			if e, ok := errs[0].(error); ok {
				err = e
			}
		}
		logger.Debug("EVENT HANDLER: 'connect_error' event fired", "error", err)
		select {
		case connectChan <- err:
		default:
		}
	})

	io.Connect()

	timeout := s.ConnectTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	select {
	case err := <-connectChan:
		if err != nil {
			return fmt.Errorf("socket.io connection failed: %w", err)
		}
	case <-ctx.Done():
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("timed out after %v waiting for socket.io connection", timeout)
	}

	for {
		select {
		case <-ctx.Done():
			logger.Info("Step source closed.")
			return nil
		case n := <-messages:
			handle(ctx, n)
		}
	}
}

// decode turns the event argument into a notification bound to a step
// element of Doc.
func (s *SocketIOSource) decode(arg any) (StepNotification, error) {
	var msg stepMessage
	switch v := arg.(type) {
	case string:
		if err := json.Unmarshal([]byte(v), &msg); err != nil {
			return StepNotification{}, err
		}
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return StepNotification{}, err
		}
		if err := json.Unmarshal(raw, &msg); err != nil {
			return StepNotification{}, err
		}
	}

	dir, err := ParseDirection(msg.Direction)
	if err != nil {
		return StepNotification{}, err
	}
	el := FindStepElement(s.Doc, msg.ID, msg.Step)
	if el == nil {
		return StepNotification{}, fmt.Errorf("no step element for id %q / step %q", msg.ID, msg.Step)
	}
	return StepNotification{Element: el, Index: msg.Index, Step: msg.Step, Direction: dir}, nil
}

// FindStepElement resolves a step element by id, falling back to the first
// element whose data-step equals step.
func FindStepElement(doc *dom.Document, id, step string) *dom.Element {
	if doc == nil {
		return nil
	}
	if id != "" {
		if el := doc.ElementByID(id); el != nil {
			return el
		}
	}
	if step == "" {
		return nil
	}
	el, err := doc.Query(fmt.Sprintf("[data-step=%s]", cssString(step)))
	if err != nil {
		return nil
	}
	return el
}

// cssString quotes s as a CSS string literal.
func cssString(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\a `)
	return `"` + r.Replace(s) + `"`
}
