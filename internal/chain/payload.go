package chain

import "github.com/pacetrade/pacebot/internal/chain/bcs"

// Transaction payload enum variants.
const (
	payloadVariantEntryFunction = 2
)

// ModuleID identifies a published module by its account address and name.
type ModuleID struct {
	Address AccountAddress
	Name    string
}

// MarshalBCS encodes the module id as address followed by name.
func (m ModuleID) MarshalBCS(e *bcs.Encoder) {
	m.Address.MarshalBCS(e)
	e.String(m.Name)
}

// EntryFunction is a call to a public entry function. Arguments are
// pre-serialized per the function's signature; type arguments are carried as
// already-encoded type tags (all payloads built here use none, so callers
// leave the slice nil).
type EntryFunction struct {
	Module   ModuleID
	Function string
	TypeArgs [][]byte
	Args     [][]byte
}

// MarshalBCS encodes the payload as the EntryFunction variant of the
// transaction payload enum.
func (f EntryFunction) MarshalBCS(e *bcs.Encoder) {
	e.Uleb128(payloadVariantEntryFunction)
	f.Module.MarshalBCS(e)
	e.String(f.Function)
	e.Uleb128(uint32(len(f.TypeArgs)))
	for _, t := range f.TypeArgs {
		e.FixedBytes(t)
	}
	e.Uleb128(uint32(len(f.Args)))
	for _, a := range f.Args {
		e.WriteBytes(a)
	}
}
