package types

// ComponentOrigin records how a component entered the workspace.
type ComponentOrigin string

const (
	// OriginAuthored marks a component created locally in this workspace.
	OriginAuthored ComponentOrigin = "AUTHORED"
	// OriginImported marks a component pulled from a remote store and
	// materialized locally for direct use.
	OriginImported ComponentOrigin = "IMPORTED"
	// OriginNested marks a component present only as a transitive
	// dependency of an imported component.
	OriginNested ComponentOrigin = "NESTED"
)

// DependencyClass identifies one of the four independent dependency
// collections a component carries. Class order is significant: every
// operation that walks all classes does so in runtime, dev, compiler,
// tester order.
type DependencyClass string

const (
	ClassRuntime  DependencyClass = "runtime"
	ClassDev      DependencyClass = "dev"
	ClassCompiler DependencyClass = "compiler"
	ClassTester   DependencyClass = "tester"
)

// EnvKind identifies which plugin slot an environment descriptor
// belongs to.
type EnvKind string

const (
	EnvKindCompiler EnvKind = "compiler"
	EnvKindTester   EnvKind = "tester"
)
