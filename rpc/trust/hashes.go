package trust

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/nspcc-dev/neo-go/pkg/core/state"
	"github.com/nspcc-dev/neo-go/pkg/encoding/address"
	"github.com/nspcc-dev/neo-go/pkg/util"
)

// ContractStateGetter is the interface required for contract state resolution
// using a known contract ID.
type ContractStateGetter interface {
	GetContractStateByID(int32) (*state.Contract, error)
}

// ResolveHash returns the contract hash from its string reference. It may be
// a Neo address, an LE hex script hash (optionally 0x-prefixed) or a decimal
// contract ID which is resolved with sg.
func ResolveHash(sg ContractStateGetter, ref string) (util.Uint160, error) {
	ref = strings.TrimSpace(ref)

	if h, err := address.StringToUint160(ref); err == nil {
		return h, nil
	}

	if h, err := util.Uint160DecodeStringLE(strings.TrimPrefix(ref, "0x")); err == nil {
		return h, nil
	}

	id, err := strconv.ParseInt(ref, 10, 32)
	if err != nil {
		return util.Uint160{}, fmt.Errorf("invalid contract reference %q", ref)
	}

	c, err := sg.GetContractStateByID(int32(id))
	if err != nil {
		return util.Uint160{}, fmt.Errorf("get contract %d: %w", id, err)
	}

	return c.Hash, nil
}
