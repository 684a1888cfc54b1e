package terraform

import (
	"encoding/json"
	"fmt"
)

// Output is a single terraform output value.
type Output struct {
	Sensitive bool            `json:"sensitive"`
	Value     json.RawMessage `json:"value"`
}

// Outputs maps output names to values, as produced by
// `terraform output -json`.
type Outputs map[string]Output

// ParseOutputs decodes the JSON document printed by terraform output.
func ParseOutputs(data []byte) (Outputs, error) {
	if len(data) == 0 {
		return Outputs{}, nil
	}
	var out Outputs
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to decode terraform outputs: %w", err)
	}
	return out, nil
}

// String returns a string-typed output value, or "" when absent or not a
// string.
func (o Outputs) String(name string) string {
	raw, ok := o[name]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw.Value, &s); err != nil {
		return ""
	}
	return s
}

// VMIP returns the vm_ip output. "dhcp-pending" means the guest agent has
// not reported an address yet and counts as unresolved.
func (o Outputs) VMIP() (string, bool) {
	ip := o.String("vm_ip")
	if ip == "" || ip == "dhcp-pending" {
		return "", false
	}
	return ip, true
}
