package postgres

import (
	"encoding/json"
	"fmt"
)

// marshalStrings encodes a string slice for a jsonb column. A nil slice is
// stored as an empty array so reads never have to distinguish NULL.
func marshalStrings(values []string) ([]byte, error) {
	if values == nil {
		values = []string{}
	}
	data, err := json.Marshal(values)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal string list: %w", err)
	}
	return data, nil
}

// unmarshalStrings decodes a jsonb string-array column. NULL and empty
// payloads decode to nil.
func unmarshalStrings(data []byte) ([]string, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var values []string
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("failed to unmarshal string list: %w", err)
	}
	if len(values) == 0 {
		return nil, nil
	}
	return values, nil
}

// marshalJSONB encodes an arbitrary value for a jsonb column.
func marshalJSONB(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal jsonb value: %w", err)
	}
	return data, nil
}

// unmarshalJSONB decodes a jsonb column into dest, treating NULL as absent.
func unmarshalJSONB(data []byte, dest any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("failed to unmarshal jsonb value: %w", err)
	}
	return nil
}
