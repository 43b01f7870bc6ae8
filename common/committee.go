package common

import (
	"github.com/nspcc-dev/neo-go/pkg/interop/contract"
	"github.com/nspcc-dev/neo-go/pkg/interop/native/neo"
)

// CommitteeAddress returns multi address of the Neo committee public keys,
// `M = N/2+1` signatures are required.
func CommitteeAddress() []byte {
	committee := neo.GetCommittee()
	return contract.CreateMultisigAccount(len(committee)/2+1, committee)
}
