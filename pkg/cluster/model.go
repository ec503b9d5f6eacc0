package cluster

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// payloadSchemaV1 tags the serialized model layout. Bump when the payload
// shape changes so stale session blobs fail deserialization cleanly.
const payloadSchemaV1 = 1

// modelPayload is the self-contained serialized form of a trained
// TopicCluster. Everything needed to reconstruct render behavior is here;
// the type name lives in the session's algorithm spec, not in the payload.
type modelPayload struct {
	Schema       int               `json:"schema"`
	ModelVersion string            `json:"model_version"`
	Labels       map[string]string `json:"labels"`
	Degenerate   bool              `json:"degenerate,omitempty"`
	Centroids    [][]float32       `json:"centroids,omitempty"`
}

func encodeModel(a *TopicCluster) ([]byte, error) {
	payload := modelPayload{
		Schema:       payloadSchemaV1,
		ModelVersion: a.modelVersion,
		Labels:       make(map[string]string, len(a.labels)),
	}
	for partition, label := range a.labels {
		payload.Labels[strconv.Itoa(partition)] = label
	}

	switch predictor := a.predictor.(type) {
	case *Centroids:
		payload.Centroids = predictor.Points
	case SinglePartition:
		payload.Degenerate = true
	default:
		return nil, fmt.Errorf("predictor %T is not serializable", a.predictor)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding model: %w", err)
	}
	return data, nil
}

func decodeModel(data []byte) (Predictor, map[int]string, string, error) {
	var payload modelPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, nil, "", fmt.Errorf("decoding model: %w", err)
	}
	if payload.Schema != payloadSchemaV1 {
		return nil, nil, "", fmt.Errorf("unsupported model schema %d", payload.Schema)
	}
	if payload.ModelVersion == "" {
		return nil, nil, "", fmt.Errorf("model payload has no version")
	}

	labels := make(map[int]string, len(payload.Labels))
	for key, label := range payload.Labels {
		partition, err := strconv.Atoi(key)
		if err != nil {
			return nil, nil, "", fmt.Errorf("bad partition key %q: %w", key, err)
		}
		labels[partition] = label
	}

	var predictor Predictor
	switch {
	case payload.Degenerate:
		predictor = SinglePartition{}
	case len(payload.Centroids) > 0:
		predictor = &Centroids{Points: payload.Centroids}
	default:
		return nil, nil, "", fmt.Errorf("model payload has neither centroids nor degenerate flag")
	}

	return predictor, labels, payload.ModelVersion, nil
}
