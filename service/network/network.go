package network

import (
	"fmt"
	"os"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

// Name identifies a supported network.
type Name string

const (
	Ethereum       Name = "Ethereum"
	EthereumGoerli Name = "Ethereum_Goerli"
	BNBChain       Name = "BNB_Chain"
	Polygon        Name = "Polygon"
	PolygonMumbai  Name = "Polygon_Mumbai"
	Arbitrum       Name = "Arbitrum"
	ArbitrumGoerli Name = "Arbitrum_Goerli"
	Hardhat        Name = "Hardhat"
)

// ChainType distinguishes chain families. Only EVM chains exist today.
type ChainType int

const (
	ChainTypeEVM ChainType = 0
)

// Chain is the (type, id) pair used to look up a network.
type Chain struct {
	Type ChainType `json:"type" yaml:"type"`
	ID   uint64    `json:"id" yaml:"id"`
}

func (c Chain) String() string {
	return fmt.Sprintf("%d:%d", c.Type, c.ID)
}

// EVMGasType mirrors the EIP-2718 transaction type used for gas fields.
type EVMGasType uint8

const (
	EVMGasType0 EVMGasType = 0
	EVMGasType1 EVMGasType = 1
	EVMGasType2 EVMGasType = 2
)

// POIConfig is the proof-of-innocence launch configuration for a network.
// Networks without one are not tracked by the railgun transaction sync.
type POIConfig struct {
	LaunchBlock uint64 `json:"launch_block" yaml:"launch_block"`
}

// Network describes one supported network and its fee-model capabilities.
type Network struct {
	Name       Name
	PublicName string
	Chain      Chain
	POI        *POIConfig

	// SupportsEIP1559 is false for networks that only accept legacy gas pricing.
	SupportsEIP1559 bool

	// RequiresBatchMinGasPrice is true when proofs commit to an overall batch
	// minimum gas price that must match at broadcast time.
	RequiresBatchMinGasPrice bool
}

// Registry resolves chains and names to network descriptors.
// It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	networks map[Name]*Network
}

// NewRegistry creates a registry from the given networks.
func NewRegistry(networks ...Network) *Registry {
	r := &Registry{networks: make(map[Name]*Network, len(networks))}
	for i := range networks {
		n := networks[i]
		r.networks[n.Name] = &n
	}
	return r
}

// DefaultRegistry returns the built-in network table. POI launch configuration
// is absent by default and is supplied with SetPOI or ApplyOverrides.
func DefaultRegistry() *Registry {
	return NewRegistry(
		Network{Name: Ethereum, PublicName: "Ethereum", Chain: Chain{Type: ChainTypeEVM, ID: 1}, SupportsEIP1559: true, RequiresBatchMinGasPrice: true},
		Network{Name: EthereumGoerli, PublicName: "Goerli Testnet", Chain: Chain{Type: ChainTypeEVM, ID: 5}, SupportsEIP1559: true, RequiresBatchMinGasPrice: true},
		Network{Name: BNBChain, PublicName: "BNB Chain", Chain: Chain{Type: ChainTypeEVM, ID: 56}, SupportsEIP1559: false, RequiresBatchMinGasPrice: true},
		Network{Name: Polygon, PublicName: "Polygon PoS", Chain: Chain{Type: ChainTypeEVM, ID: 137}, SupportsEIP1559: true, RequiresBatchMinGasPrice: true},
		Network{Name: PolygonMumbai, PublicName: "Mumbai Testnet", Chain: Chain{Type: ChainTypeEVM, ID: 80001}, SupportsEIP1559: true, RequiresBatchMinGasPrice: true},
		Network{Name: Arbitrum, PublicName: "Arbitrum", Chain: Chain{Type: ChainTypeEVM, ID: 42161}, SupportsEIP1559: true, RequiresBatchMinGasPrice: false},
		Network{Name: ArbitrumGoerli, PublicName: "Arbitrum Goerli Testnet", Chain: Chain{Type: ChainTypeEVM, ID: 421613}, SupportsEIP1559: true, RequiresBatchMinGasPrice: false},
		Network{Name: Hardhat, PublicName: "Hardhat Local", Chain: Chain{Type: ChainTypeEVM, ID: 31337}, SupportsEIP1559: true, RequiresBatchMinGasPrice: true},
	)
}

// ForChain returns the network for a chain, or false if unknown.
func (r *Registry) ForChain(chain Chain) (*Network, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, n := range r.networks {
		if n.Chain == chain {
			c := *n
			return &c, true
		}
	}
	return nil, false
}

// ByName returns the network with the given name, or false if unknown.
func (r *Registry) ByName(name Name) (*Network, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n, ok := r.networks[name]
	if !ok {
		return nil, false
	}
	c := *n
	return &c, true
}

// Names returns all registered network names in sorted order.
func (r *Registry) Names() []Name {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]Name, 0, len(r.networks))
	for name := range r.networks {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// SetPOI sets or clears (nil) the POI launch configuration for a network.
func (r *Registry) SetPOI(name Name, poi *POIConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.networks[name]
	if !ok {
		return fmt.Errorf("unknown network: %s", name)
	}
	n.POI = poi
	return nil
}

// ShouldSetOverallBatchMinGasPrice reports whether proofs on this network
// commit to an overall batch minimum gas price. Unknown networks report false.
func (r *Registry) ShouldSetOverallBatchMinGasPrice(name Name) bool {
	n, ok := r.ByName(name)
	if !ok {
		return false
	}
	return n.RequiresBatchMinGasPrice
}

// Overrides is the on-disk format for per-network adjustments.
//
//	networks:
//	  Ethereum:
//	    poi:
//	      launch_block: 1000
type Overrides struct {
	Networks map[Name]struct {
		POI *POIConfig `yaml:"poi"`
	} `yaml:"networks"`
}

// LoadOverrides reads an overrides file from disk.
func LoadOverrides(path string) (*Overrides, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read network overrides: %w", err)
	}
	return ParseOverrides(data)
}

// ParseOverrides decodes an overrides document.
func ParseOverrides(data []byte) (*Overrides, error) {
	var o Overrides
	if err := yaml.Unmarshal(data, &o); err != nil {
		return nil, fmt.Errorf("failed to parse network overrides: %w", err)
	}
	return &o, nil
}

// ApplyOverrides applies overrides to the registry. Unknown network names are an error.
func (r *Registry) ApplyOverrides(o *Overrides) error {
	if o == nil {
		return nil
	}
	for name, override := range o.Networks {
		if err := r.SetPOI(name, override.POI); err != nil {
			return err
		}
	}
	return nil
}
