// Package gateway is the privileged boundary between the presentation layer
// and the engine: a fixed allow-list of named operations plus a fixed set of
// named event channels. Anything outside the enumerated sets is rejected,
// never executed.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/zreik-blanc/pakky/internal/events"
	"github.com/zreik-blanc/pakky/internal/orchestrator"
	"github.com/zreik-blanc/pakky/internal/queue"
	"github.com/zreik-blanc/pakky/internal/script"
)

// ErrNotAllowed is returned for operation or channel names outside the
// allow-list.
var ErrNotAllowed = errors.New("operation not allowed")

// Allow-listed operation names.
const (
	OpQueueAdd         = "queue.add"
	OpQueueRemove      = "queue.remove"
	OpQueueList        = "queue.list"
	OpQueueImport      = "queue.import"
	OpInstallStart     = "install.start"
	OpInstallCancel    = "install.cancel"
	OpInstallStatus    = "install.status"
	OpInstallReinstall = "install.reinstall"
	OpScriptList       = "script.list"
	OpScriptSuggest    = "script.suggest"
)

// Allow-listed event channel names.
const (
	ChannelInstallProgress = "install.progress"
	ChannelInstallLog      = "install.log"
)

// Error codes carried in responses.
const (
	CodeNotAllowed    = "NOT_ALLOWED"
	CodeValidation    = "VALIDATION_ERROR"
	CodeSessionActive = "SESSION_ACTIVE"
	CodeNotFound      = "NOT_FOUND"
	CodeInternal      = "INTERNAL_ERROR"
)

// Request names an operation and carries its parameters.
type Request struct {
	Op     string          `json:"op"`
	Params json.RawMessage `json:"params,omitempty"`
}

// Response is the envelope every operation returns.
type Response struct {
	OK    bool            `json:"ok"`
	Data  json.RawMessage `json:"data,omitempty"`
	Error *ErrorDetail    `json:"error,omitempty"`
}

// ErrorDetail describes a rejected or failed operation.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// TemplateSource lists the available script templates.
type TemplateSource func() ([]script.Template, error)

// Gateway dispatches allow-listed operations to the engine.
type Gateway struct {
	orch      *orchestrator.Orchestrator
	bus       *events.Bus
	templates TemplateSource
	handlers  map[string]func(ctx context.Context, params json.RawMessage) (any, *ErrorDetail)
}

// New creates a Gateway over the given engine components.
func New(orch *orchestrator.Orchestrator, bus *events.Bus, templates TemplateSource) *Gateway {
	g := &Gateway{orch: orch, bus: bus, templates: templates}
	g.handlers = map[string]func(ctx context.Context, params json.RawMessage) (any, *ErrorDetail){
		OpQueueAdd:         g.queueAdd,
		OpQueueRemove:      g.queueRemove,
		OpQueueList:        g.queueList,
		OpQueueImport:      g.queueImport,
		OpInstallStart:     g.installStart,
		OpInstallCancel:    g.installCancel,
		OpInstallStatus:    g.installStatus,
		OpInstallReinstall: g.installReinstall,
		OpScriptList:       g.scriptList,
		OpScriptSuggest:    g.scriptSuggest,
	}
	return g
}

// Dispatch executes one request. Unknown operation names yield a
// NOT_ALLOWED response; the request is never executed.
func (g *Gateway) Dispatch(ctx context.Context, req Request) Response {
	handler, ok := g.handlers[req.Op]
	if !ok {
		return errorResponse(CodeNotAllowed, fmt.Sprintf("operation %q is not allowed", req.Op))
	}

	data, errDetail := handler(ctx, req.Params)
	if errDetail != nil {
		return Response{OK: false, Error: errDetail}
	}

	resp := Response{OK: true}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return errorResponse(CodeInternal, err.Error())
		}
		resp.Data = raw
	}
	return resp
}

// Subscribe attaches fn to a named event channel and returns an unsubscribe
// function. Unknown channel names are rejected.
func (g *Gateway) Subscribe(channel string, fn func(events.Event)) (func(), error) {
	switch channel {
	case ChannelInstallProgress:
		unsubItem := g.bus.Subscribe(events.TypeItemStatus, fn)
		unsubSession := g.bus.Subscribe(events.TypeSessionStatus, fn)
		return func() {
			unsubItem()
			unsubSession()
		}, nil
	case ChannelInstallLog:
		return g.bus.Subscribe(events.TypeLogLine, fn), nil
	default:
		return nil, fmt.Errorf("%w: channel %q", ErrNotAllowed, channel)
	}
}

func errorResponse(code, message string) Response {
	return Response{OK: false, Error: &ErrorDetail{Code: code, Message: message}}
}

type addParams struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

func (g *Gateway) queueAdd(ctx context.Context, params json.RawMessage) (any, *ErrorDetail) {
	var p addParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, &ErrorDetail{Code: CodeValidation, Message: err.Error()}
	}
	if p.Name == "" {
		return nil, &ErrorDetail{Code: CodeValidation, Message: "name is required"}
	}
	t := queue.PackageType(p.Type)
	if t != queue.TypeFormula && t != queue.TypeCask {
		return nil, &ErrorDetail{Code: CodeValidation, Message: fmt.Sprintf("unknown package type %q", p.Type)}
	}

	added := g.orch.AddPackages(ctx, queue.Candidate{Name: p.Name, Type: t})
	return map[string]any{"added": len(added)}, nil
}

type idParams struct {
	ID string `json:"id"`
}

func (g *Gateway) queueRemove(ctx context.Context, params json.RawMessage) (any, *ErrorDetail) {
	var p idParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, &ErrorDetail{Code: CodeValidation, Message: err.Error()}
	}
	if err := g.orch.RemoveItem(p.ID); err != nil {
		if errors.Is(err, orchestrator.ErrItemInstalling) {
			return nil, &ErrorDetail{Code: CodeSessionActive, Message: err.Error()}
		}
		return nil, &ErrorDetail{Code: CodeInternal, Message: err.Error()}
	}
	return nil, nil
}

func (g *Gateway) queueList(ctx context.Context, params json.RawMessage) (any, *ErrorDetail) {
	return g.orch.Queue(), nil
}

type importParams struct {
	Path string `json:"path"`
}

func (g *Gateway) queueImport(ctx context.Context, params json.RawMessage) (any, *ErrorDetail) {
	var p importParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, &ErrorDetail{Code: CodeValidation, Message: err.Error()}
	}
	items, err := queue.LoadPreset(p.Path)
	if err != nil {
		return nil, &ErrorDetail{Code: CodeNotFound, Message: err.Error()}
	}
	added := g.orch.MergeItems(items)
	return map[string]any{"added": added}, nil
}

func (g *Gateway) installStart(ctx context.Context, params json.RawMessage) (any, *ErrorDetail) {
	if g.orch.Active() {
		return nil, &ErrorDetail{Code: CodeSessionActive, Message: orchestrator.ErrSessionActive.Error()}
	}
	// The session outlives the request; progress is observed on the event
	// channels, not the response.
	go g.orch.Run(context.WithoutCancel(ctx))
	return map[string]any{"started": true}, nil
}

func (g *Gateway) installCancel(ctx context.Context, params json.RawMessage) (any, *ErrorDetail) {
	g.orch.Cancel()
	return nil, nil
}

func (g *Gateway) installStatus(ctx context.Context, params json.RawMessage) (any, *ErrorDetail) {
	view := g.orch.Session()
	return map[string]any{
		"id":     view.ID,
		"status": string(view.Status),
		"logs":   view.Logs,
	}, nil
}

func (g *Gateway) installReinstall(ctx context.Context, params json.RawMessage) (any, *ErrorDetail) {
	var p idParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, &ErrorDetail{Code: CodeValidation, Message: err.Error()}
	}
	if err := g.orch.Reinstall(p.ID); err != nil {
		if errors.Is(err, orchestrator.ErrUnknownItem) {
			return nil, &ErrorDetail{Code: CodeNotFound, Message: err.Error()}
		}
		return nil, &ErrorDetail{Code: CodeValidation, Message: err.Error()}
	}
	return nil, nil
}

func (g *Gateway) scriptList(ctx context.Context, params json.RawMessage) (any, *ErrorDetail) {
	templates, err := g.templates()
	if err != nil {
		return nil, &ErrorDetail{Code: CodeInternal, Message: err.Error()}
	}
	return templates, nil
}

type suggestParams struct {
	Installed []string `json:"installed"`
}

func (g *Gateway) scriptSuggest(ctx context.Context, params json.RawMessage) (any, *ErrorDetail) {
	var p suggestParams
	if len(params) > 0 {
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, &ErrorDetail{Code: CodeValidation, Message: err.Error()}
		}
	}
	templates, err := g.templates()
	if err != nil {
		return nil, &ErrorDetail{Code: CodeInternal, Message: err.Error()}
	}
	return script.Suggest(templates, p.Installed), nil
}
