package domain

// Chain identifies the network a record belongs to.
type Chain string

const (
	ChainBase     Chain = "base"
	ChainEthereum Chain = "ethereum"
	ChainBSC      Chain = "bsc"
	ChainSui      Chain = "sui"

	// ChainGeneral tags news items not tied to a specific network.
	ChainGeneral Chain = "general"
)

// String returns the string representation of Chain.
func (c Chain) String() string {
	return string(c)
}

// IsValid checks if the chain is a valid value.
func (c Chain) IsValid() bool {
	switch c {
	case ChainBase, ChainEthereum, ChainBSC, ChainSui, ChainGeneral:
		return true
	}
	return false
}

// IsEVM reports whether the chain uses EVM-style logs and addresses.
func (c Chain) IsEVM() bool {
	switch c {
	case ChainBase, ChainEthereum, ChainBSC:
		return true
	}
	return false
}
