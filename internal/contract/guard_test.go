package contract

import (
	"sync"

	"github.com/funvibe/uniffi-bindgen-dart/internal/errs"
)

// library is the native side as seen by the guard.
type library interface {
	// ContractVersion returns the version the library was built for.
	ContractVersion() uint32
	// Checksum calls the checksum accessor named symbol.
	Checksum(symbol string) (uint16, error)
}

// guard follows the initialization routine Render emits: the contract
// version is checked first, then every checksum, then the registrations
// run. ensure performs this once and its outcome is sticky.
type guard struct {
	lib       library
	version   uint32
	checksums []Entry
	register  []func() error

	once sync.Once
	err  error
}

type guardOption func(*guard)

// withRegistration adds a step run after the checks pass, such as the
// registration of a callback vtable.
func withRegistration(fn func() error) guardOption {
	return func(g *guard) {
		g.register = append(g.register, fn)
	}
}

func newGuard(lib library, version uint32, checksums []Entry, opts ...guardOption) *guard {
	g := &guard{lib: lib, version: version, checksums: checksums}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// ensure is safe for concurrent use; callers racing the first call block
// until it completes.
func (g *guard) ensure() error {
	g.once.Do(func() {
		g.err = g.run()
	})
	return g.err
}

func (g *guard) run() error {
	if got := g.lib.ContractVersion(); got != g.version {
		return errs.New(errs.PhaseInit, errs.KindContractVersion).
			Detail("contract version mismatch: bindings version %d, scaffolding version %d", g.version, got).
			Build()
	}
	for _, e := range g.checksums {
		got, err := g.lib.Checksum(e.Symbol)
		if err != nil {
			return errs.New(errs.PhaseInit, errs.KindChecksum).Path(e.Symbol).Cause(err).Build()
		}
		if got != e.Checksum {
			return errs.New(errs.PhaseInit, errs.KindChecksum).Path(e.Symbol).
				Detail("checksum mismatch: expected %d, library has %d", e.Checksum, got).
				Build()
		}
	}
	for _, fn := range g.register {
		if err := fn(); err != nil {
			return errs.Wrap(errs.PhaseInit, errs.KindUnsupported, err, "registration failed")
		}
	}
	return nil
}
