package actions

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/botsmithhq/botsmith/internal/models"
	apperrors "github.com/botsmithhq/botsmith/pkg/errors"
	"github.com/botsmithhq/botsmith/pkg/logger"
	"github.com/botsmithhq/botsmith/pkg/metrics"
)

const defaultActionTimeout = 30 * time.Second

// responsePlaceholder in the configured response text is replaced with the
// endpoint's reply body.
const responsePlaceholder = "${RESPONSE}"

// ErrActionNotFound reports a webhook call naming an unconfigured action.
var ErrActionNotFound = apperrors.NewNotFound("ACTION_NOT_FOUND", "No action configured under this name")

// ExecutorOption customises Executor behaviour.
type ExecutorOption func(*Executor)

// WithHTTPClient overrides the outbound HTTP client, primarily for testing.
func WithHTTPClient(client *http.Client) ExecutorOption {
	return func(e *Executor) {
		if client != nil {
			e.client = client
		}
	}
}

// WithActionTimeout bounds a single action call.
func WithActionTimeout(d time.Duration) ExecutorOption {
	return func(e *Executor) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// Executor runs configured custom actions on behalf of the webhook endpoint.
type Executor struct {
	db      *gorm.DB
	client  *http.Client
	timeout time.Duration
	log     *zap.Logger
}

// NewExecutor constructs an Executor with the provided dependencies.
func NewExecutor(db *gorm.DB, opts ...ExecutorOption) (*Executor, error) {
	if db == nil {
		return nil, errors.New("action executor: db is required")
	}

	e := &Executor{
		db:      db,
		client:  &http.Client{},
		timeout: defaultActionTimeout,
		log:     logger.WithModule("actions"),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e, nil
}

// Execute looks up the named action for the bot, runs it, and returns the slot
// write plus the utterance to show the user. Failures still produce a response
// so the conversation can continue; the error slot value records what happened.
func (e *Executor) Execute(ctx context.Context, req *WebhookRequest) (*WebhookResponse, error) {
	action, err := e.findHTTPAction(ctx, req.BotID, req.NextAction)
	if err != nil {
		metrics.ActionExecutions.WithLabelValues(string(ActionHTTP), "not_found").Inc()
		return nil, err
	}

	body, err := e.callEndpoint(ctx, action, req)
	if err != nil {
		metrics.ActionExecutions.WithLabelValues(string(ActionHTTP), "failure").Inc()
		e.log.Warn("action call failed",
			zap.String("bot_id", req.BotID),
			zap.String("action", action.ActionName),
			zap.Error(err))
		return failureResponse(), nil
	}

	metrics.ActionExecutions.WithLabelValues(string(ActionHTTP), "success").Inc()

	text := strings.TrimSpace(action.ResponseText)
	if text == "" {
		text = body
	} else {
		text = strings.ReplaceAll(text, responsePlaceholder, body)
	}

	return &WebhookResponse{
		Events:    []SlotEvent{{Event: "slot", Name: ResponseSlot, Value: text}},
		Responses: []BotUtterance{{Text: text}},
	}, nil
}

func (e *Executor) findHTTPAction(ctx context.Context, botID, name string) (*models.HTTPAction, error) {
	var action models.HTTPAction
	if err := e.db.WithContext(ctx).
		Preload("Params").
		Where("bot_id = ? AND action_name = ? AND status = ?", botID, name, models.StatusActive).
		First(&action).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrActionNotFound
		}
		return nil, fmt.Errorf("action executor: load action: %w", err)
	}
	return &action, nil
}

// callEndpoint performs the configured HTTP request. GET encodes parameters as
// query values; other methods send them as a JSON body.
func (e *Executor) callEndpoint(ctx context.Context, action *models.HTTPAction, req *WebhookRequest) (string, error) {
	params := resolveParams(action.Params, req)

	method := strings.ToUpper(strings.TrimSpace(action.Method))
	if method == "" {
		method = http.MethodGet
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	var httpReq *http.Request
	var err error
	if method == http.MethodGet {
		httpReq, err = http.NewRequestWithContext(ctx, method, action.URL, nil)
		if err == nil && len(params) > 0 {
			query := url.Values{}
			for key, value := range params {
				query.Set(key, fmt.Sprintf("%v", value))
			}
			httpReq.URL.RawQuery = query.Encode()
		}
	} else {
		payload, marshalErr := json.Marshal(params)
		if marshalErr != nil {
			return "", fmt.Errorf("action executor: encode payload: %w", marshalErr)
		}
		httpReq, err = http.NewRequestWithContext(ctx, method, action.URL, bytes.NewReader(payload))
		if err == nil {
			httpReq.Header.Set("Content-Type", "application/json")
		}
	}
	if err != nil {
		return "", fmt.Errorf("action executor: build request: %w", err)
	}

	for key, value := range action.Headers.Data() {
		httpReq.Header.Set(key, value)
	}

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("action executor: call endpoint: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("action executor: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("action executor: endpoint returned %d", resp.StatusCode)
	}

	return string(body), nil
}

// resolveParams materialises each configured parameter against the tracker.
func resolveParams(params []models.HTTPParam, req *WebhookRequest) map[string]any {
	out := make(map[string]any, len(params))
	for _, param := range params {
		switch ParameterSource(param.Source) {
		case SourceSlot:
			out[param.Key] = req.Tracker.Slots[param.Value]
		case SourceSender:
			out[param.Key] = req.Tracker.SenderID
		case SourceUserMessage:
			out[param.Key] = req.Tracker.LatestMessage.Text
		case SourceIntent:
			out[param.Key] = req.Tracker.LatestMessage.Intent.Name
		case SourceChatLog:
			out[param.Key] = req.Tracker.Events
		default:
			out[param.Key] = param.Value
		}
	}
	return out
}

func failureResponse() *WebhookResponse {
	const text = "I have failed to process your request"
	return &WebhookResponse{
		Events:    []SlotEvent{{Event: "slot", Name: ResponseSlot, Value: text}},
		Responses: []BotUtterance{{Text: text}},
	}
}
