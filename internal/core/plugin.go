package core

import (
	"github.com/ZanzyTHEbar/errbuilder-go"

	"compkit/internal/ports"
	"compkit/internal/types"
)

// CompilerAction is a compiler plugin's call shape, resolved once at
// load time. Exactly one variant is set.
type CompilerAction struct {
	Batch  ports.BatchCompiler
	Legacy ports.LegacyCompiler
}

// TesterAction is a tester plugin's call shape, resolved once at load
// time. Exactly one variant is set.
type TesterAction struct {
	Batch   ports.BatchTester
	PerFile ports.FileTester
}

// ResolveCompilerAction inspects a plugin's API and picks its call
// shape. A plugin exposing neither contract, or both, violates the
// compiler interface.
func ResolveCompilerAction(env ports.PluginEnvelope, id types.ComponentID) (CompilerAction, error) {
	api := env.API()
	batch, hasBatch := api.(ports.BatchCompiler)
	legacy, hasLegacy := api.(ports.LegacyCompiler)
	if hasBatch == hasLegacy {
		return CompilerAction{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("invalid compiler interface for component " + id.String() +
				": compiler " + env.Name() + " must expose exactly one of the batch or legacy contracts")
	}
	return CompilerAction{Batch: batch, Legacy: legacy}, nil
}

// ResolveTesterAction is the tester counterpart of
// ResolveCompilerAction.
func ResolveTesterAction(env ports.PluginEnvelope, id types.ComponentID) (TesterAction, error) {
	api := env.API()
	batch, hasBatch := api.(ports.BatchTester)
	perFile, hasPerFile := api.(ports.FileTester)
	if hasBatch == hasPerFile {
		return TesterAction{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("invalid tester interface for component " + id.String() +
				": tester " + env.Name() + " must expose exactly one of the batch or per-file contracts")
	}
	return TesterAction{Batch: batch, PerFile: perFile}, nil
}
