package algorithm

import (
	"encoding/json"
	"fmt"
)

// Spec is a structural reference to a trained Algorithm: the type name plus
// the exact hyperparameters it was trained with. Sessions persist it as
// JSON; the registry resolves it back to a Type.
type Spec struct {
	Type   string            `json:"type"`
	Params map[string]string `json:"params,omitempty"`
}

// Encode renders the spec as JSON for session storage.
func (s *Spec) Encode() ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encoding algorithm spec: %w", err)
	}
	return data, nil
}

// DecodeSpec parses a stored spec. A nil/empty payload decodes to nil,
// meaning "no algorithm selected".
func DecodeSpec(data []byte) (*Spec, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var s Spec
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decoding algorithm spec: %w", err)
	}
	if s.Type == "" {
		return nil, nil
	}
	return &s, nil
}
