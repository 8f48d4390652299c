package service

// Layer groups services by what they manage.
type Layer string

const (
	LayerRegistry Layer = "registry"
	LayerChain    Layer = "chain"
	LayerLedger   Layer = "ledger"
)

// Descriptor advertises a service's placement and capabilities. The system
// status endpoint lists the descriptors of every registered service.
type Descriptor struct {
	Name         string   `json:"name"`
	Domain       string   `json:"domain"`
	Layer        Layer    `json:"layer"`
	Capabilities []string `json:"capabilities,omitempty"`
}

// WithCapabilities returns a copy of the descriptor with additional
// capabilities appended.
func (d Descriptor) WithCapabilities(caps ...string) Descriptor {
	if len(caps) == 0 {
		return d
	}
	combined := make([]string, 0, len(d.Capabilities)+len(caps))
	combined = append(combined, d.Capabilities...)
	combined = append(combined, caps...)
	d.Capabilities = combined
	return d
}

// DescriptorProvider is implemented by services that can describe themselves.
type DescriptorProvider interface {
	Descriptor() Descriptor
}
