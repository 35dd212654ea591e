package tools

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"codesmith/internal/logging"
)

// Registry holds the declared capabilities. It is thread-safe, though
// dispatch itself is strictly sequential: calls within one response
// batch may depend on earlier side effects and there is only one
// interaction slot.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]*Tool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]*Tool)}
}

// Register adds a tool. Duplicate names are rejected.
func (r *Registry) Register(tool *Tool) error {
	if err := tool.Validate(); err != nil {
		return fmt.Errorf("invalid tool: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[tool.Name]; exists {
		return fmt.Errorf("%w: %s", ErrToolAlreadyRegistered, tool.Name)
	}
	r.tools[tool.Name] = tool
	return nil
}

// MustRegister registers a tool and panics on error. For static
// registration at construction time.
func (r *Registry) MustRegister(tool *Tool) {
	if err := r.Register(tool); err != nil {
		panic(fmt.Sprintf("failed to register tool %s: %v", tool.Name, err))
	}
}

// Get returns a tool by name, or nil.
func (r *Registry) Get(name string) *Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tools[name]
}

// All returns every registered tool sorted by name, for building the
// declaration list sent to the model.
func (r *Registry) All() []*Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Tool, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Names returns all registered capability names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of registered tools.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// Execute dispatches one capability call. Unknown names, missing
// arguments, and handler panics all surface as error results; nothing
// escapes the dispatch boundary.
func (r *Registry) Execute(ctx context.Context, s *Session, name string, args map[string]any) (result Result) {
	log := logging.Get(logging.CategoryTools)

	tool := r.Get(name)
	if tool == nil {
		log.Warn("call to unknown capability", zap.String("name", name))
		return Failure("%s: %s", ErrUnknownCapability, name)
	}

	for _, required := range tool.Schema.Required {
		if _, ok := args[required]; !ok {
			return Failure("%s: %s", ErrMissingRequiredArg, required)
		}
	}

	defer func() {
		if rec := recover(); rec != nil {
			log.Error("capability panicked",
				zap.String("name", name), zap.Any("panic", rec))
			result = Failure("internal error executing %s", name)
		}
	}()

	log.Debug("executing capability", zap.String("name", name))
	result = tool.Execute(ctx, s, args)
	log.Debug("capability finished",
		zap.String("name", name), zap.Bool("success", result.OK()))
	return result
}
