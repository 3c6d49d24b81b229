package twincat

import (
	"sort"
	"sync"
)

// Initializer runs once per node, after the node's children are built.
// It may load sub-documents through the session and attach them.
type Initializer func(s *Session, n *Node) error

// Kind is a node type. Kinds form a chain through Base; matching by kind
// name walks that chain.
type Kind struct {
	Name string
	Base *Kind
	init Initializer
}

func (k *Kind) Is(name string) bool {
	for c := k; c != nil; c = c.Base {
		if c.Name == name {
			return true
		}
	}
	return false
}

func (k *Kind) initializer() Initializer {
	for c := k; c != nil; c = c.Base {
		if c.init != nil {
			return c.init
		}
	}
	return nil
}

func (k *Kind) String() string {
	return k.Name
}

// BaseKind selects which built-in kind a new kind derives from.
type BaseKind int

const (
	BaseItem BaseKind = iota
	BaseTcSmItem
	BaseSymbol
)

const (
	KindItem     = "TwincatItem"
	KindTcSmItem = "TcSmItem"
	KindSymbol   = "Symbol"
)

// Registry maps discriminators to kinds. Unknown discriminators get a
// fresh kind on first sight, derived from the appropriate base.
type Registry struct {
	mu    sync.RWMutex
	kinds map[string]*Kind
	bases [3]*Kind

	driveBlocks []string
}

type RegistryOption func(*Registry)

// WithDriveBlocks replaces the function block names treated as drive
// symbols.
func WithDriveBlocks(blocks ...string) RegistryOption {
	return func(r *Registry) {
		r.driveBlocks = append([]string(nil), blocks...)
	}
}

// DefaultDriveBlocks are the function blocks whose instances are motors.
var DefaultDriveBlocks = []string{"FB_DriveVirtual", "FB_MotionStage"}

// NewRegistry returns a registry holding every specialized kind.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		kinds:       make(map[string]*Kind),
		driveBlocks: DefaultDriveBlocks,
	}
	for _, opt := range opts {
		opt(r)
	}

	item := &Kind{Name: KindItem}
	r.bases[BaseItem] = item
	r.bases[BaseTcSmItem] = &Kind{Name: KindTcSmItem, Base: item}
	r.bases[BaseSymbol] = &Kind{Name: KindSymbol, Base: item, init: initSymbol}
	for _, k := range r.bases {
		r.kinds[k.Name] = k
	}

	r.Register("Project", BaseItem, initProject)
	r.Register("TcSmItem_CNestedPlcProjDef", BaseTcSmItem, initNestedPlcProject)
	r.Register("TcSmItem_CNcSafTaskDef", BaseTcSmItem, initNcTask)
	r.Register("NC", BaseItem, initNC)
	r.Register("Axis", BaseItem, initAxis)
	r.Register("Encoder", BaseItem, initEncoder)
	r.Register("Module", BaseItem, initModule)
	r.Register("POU", BaseItem, initPOU)
	r.Register("Link", BaseItem, initLink)
	r.Register("RemoteConnections", BaseItem, initRoutes)
	for _, tag := range []string{"Compile", "Property", "AxisPara", "EncPara", "OwnerA", "OwnerB", "Route"} {
		r.Register(tag, BaseItem, nil)
	}
	for _, block := range r.driveBlocks {
		r.Register(KindSymbol+"_"+block, BaseSymbol, initDriveSymbol)
	}
	return r
}

var defaultRegistry = sync.OnceValue(func() *Registry { return NewRegistry() })

// DefaultRegistry is the process-wide registry with the default drive blocks.
func DefaultRegistry() *Registry {
	return defaultRegistry()
}

// Register adds or replaces a specialized kind.
func (r *Registry) Register(name string, base BaseKind, init Initializer) *Kind {
	k := &Kind{Name: name, Base: r.bases[base], init: init}
	r.mu.Lock()
	r.kinds[name] = k
	r.mu.Unlock()
	return k
}

// Lookup returns a kind without creating it.
func (r *Registry) Lookup(name string) (*Kind, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	k, ok := r.kinds[name]
	return k, ok
}

// Kind returns the kind for a discriminator, creating it on first use.
func (r *Registry) Kind(name string, base BaseKind) *Kind {
	if k, ok := r.Lookup(name); ok {
		return k
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if k, ok := r.kinds[name]; ok {
		return k
	}
	k := &Kind{Name: name, Base: r.bases[base]}
	r.kinds[name] = k
	return k
}

// IsDriveKind reports whether name is one of the configured drive symbol kinds.
func (r *Registry) IsDriveKind(name string) bool {
	for _, b := range r.driveBlocks {
		if name == KindSymbol+"_"+b {
			return true
		}
	}
	return false
}

// Names lists the registered kinds, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.kinds))
	for name := range r.kinds {
		names = append(names, name)
	}
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}
