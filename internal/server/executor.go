package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"azure-mcp/internal/azure"
)

// ErrUnknownTool is returned for names missing from the catalog or the dispatch table.
var ErrUnknownTool = errors.New("unknown tool")

var errNoProvider = errors.New("azure provider not configured")

const noLogs = "No logs available"

// Provider is the set of cloud operations the tools are built on.
// *azure.Client satisfies it.
type Provider interface {
	ListResourceGroups(ctx context.Context) ([]azure.ResourceGroup, error)
	ListVirtualMachines(ctx context.Context, resourceGroup string) ([]azure.VirtualMachine, error)
	ListContainerGroups(ctx context.Context, resourceGroup string) ([]azure.ContainerGroup, error)
	ContainerLogs(ctx context.Context, resourceGroup, containerGroup, container string) (string, error)
	RestartContainerGroup(ctx context.Context, resourceGroup, containerGroup string) error
}

// toolHandler binds a tool name to the provider operation it runs. args are
// read from the call arguments in order and handed to run.
type toolHandler struct {
	args     []string
	provider bool
	run      func(ctx context.Context, p Provider, args []string) (string, error)
}

var toolHandlers = map[string]toolHandler{
	ToolStatus: {
		run: func(_ context.Context, p Provider, _ []string) (string, error) {
			if p == nil {
				return "Azure MCP Gateway is operational. Full Azure SDK integration pending credentials.", nil
			}
			return "Azure MCP Gateway is operational.", nil
		},
	},
	ToolListResourceGroups: {
		provider: true,
		run: func(ctx context.Context, p Provider, _ []string) (string, error) {
			groups, err := p.ListResourceGroups(ctx)
			if err != nil {
				return "", err
			}
			return renderList(groups)
		},
	},
	ToolListVMs: {
		args:     []string{"resourceGroup"},
		provider: true,
		run: func(ctx context.Context, p Provider, a []string) (string, error) {
			vms, err := p.ListVirtualMachines(ctx, a[0])
			if err != nil {
				return "", err
			}
			return renderList(vms)
		},
	},
	ToolListContainerApps: {
		args:     []string{"resourceGroup"},
		provider: true,
		run: func(ctx context.Context, p Provider, a []string) (string, error) {
			groups, err := p.ListContainerGroups(ctx, a[0])
			if err != nil {
				return "", err
			}
			return renderList(groups)
		},
	},
	ToolGetContainerLogs: {
		args:     []string{"resourceGroup", "containerGroup", "containerName"},
		provider: true,
		run: func(ctx context.Context, p Provider, a []string) (string, error) {
			logs, err := p.ContainerLogs(ctx, a[0], a[1], a[2])
			if err != nil {
				return "", err
			}
			if logs == "" {
				return noLogs, nil
			}
			return logs, nil
		},
	},
	ToolRestartContainer: {
		args:     []string{"resourceGroup", "containerGroup"},
		provider: true,
		run: func(ctx context.Context, p Provider, a []string) (string, error) {
			if err := p.RestartContainerGroup(ctx, a[0], a[1]); err != nil {
				return "", err
			}
			return fmt.Sprintf("Container group %s restarted successfully", a[1]), nil
		},
	},
}

func renderList[T any](items []T) (string, error) {
	if items == nil {
		items = []T{}
	}
	b, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Executor runs catalog tools against a Provider. It is safe for concurrent use.
type Executor struct {
	registry *Registry
	provider Provider
	timeout  time.Duration
	log      *logrus.Entry
}

// NewExecutor returns an executor for the tools in reg. provider may be nil,
// in which case only tools that do not need it succeed. A zero timeout leaves
// provider calls bounded only by the request context.
func NewExecutor(reg *Registry, provider Provider, timeout time.Duration, log *logrus.Entry) *Executor {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Executor{registry: reg, provider: provider, timeout: timeout, log: log}
}

// Execute runs one tool. Every failure, including an unknown name, a provider
// error and a timeout, comes back as a ToolResult with IsError set.
func (e *Executor) Execute(ctx context.Context, name string, args map[string]any) ToolResult {
	start := time.Now()
	entry := e.log.WithFields(logrus.Fields{"call_id": uuid.NewString(), "tool": name})

	text, err := e.run(ctx, name, args)
	entry = entry.WithField("duration", time.Since(start))
	if err != nil {
		if errors.Is(err, ErrUnknownTool) {
			entry.WithError(err).Info("tool call rejected")
		} else {
			entry.WithError(err).Warn("tool call failed")
		}
		return errorResult(err.Error())
	}
	entry.Info("tool call succeeded")
	return textResult(text)
}

func (e *Executor) run(ctx context.Context, name string, args map[string]any) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tool %s panicked: %v", name, r)
		}
	}()

	h, ok := toolHandlers[name]
	if _, listed := e.registry.Lookup(name); !ok || !listed {
		return "", fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
	if h.provider && e.provider == nil {
		return "", errNoProvider
	}
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	values := make([]string, len(h.args))
	for i, key := range h.args {
		values[i] = stringArg(args, key)
	}
	text, err = h.run(ctx, e.provider, values)
	if e.timeout > 0 && errors.Is(err, context.DeadlineExceeded) {
		return "", fmt.Errorf("%s timed out after %s: %w", name, e.timeout, err)
	}
	return text, err
}

// stringArg reads an argument as a string. Missing values read as empty and
// are left for the provider to reject; other JSON values are formatted so the
// provider's error names what was sent.
func stringArg(args map[string]any, key string) string {
	switch v := args[key].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}
