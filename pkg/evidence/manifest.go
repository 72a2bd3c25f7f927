package evidence

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Manifest describes one evidence bundle attached to a claim: what happened
// and which stored blobs substantiate it.
type Manifest struct {
	SchemaVersion string `json:"schema_version"`
	PolicyID      string `json:"policy_id"`
	Incident      string `json:"incident"`
	Items         []Item `json:"items"`
}

// Item is one blob reference inside a manifest.
type Item struct {
	Kind        string `json:"kind"`
	ContentHash string `json:"content_hash"`
	MediaType   string `json:"media_type,omitempty"`
	Caption     string `json:"caption,omitempty"`
}

const manifestSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["schema_version", "policy_id", "incident", "items"],
  "properties": {
    "schema_version": {"const": "v1"},
    "policy_id": {"type": "string", "minLength": 1},
    "incident": {"type": "string", "minLength": 1},
    "items": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["kind", "content_hash"],
        "properties": {
          "kind": {"enum": ["photo", "video", "document", "report"]},
          "content_hash": {"type": "string", "pattern": "^sha256:[0-9a-f]{64}$"},
          "media_type": {"type": "string"},
          "caption": {"type": "string"}
        }
      }
    }
  }
}`

var compiledManifestSchema = jsonschema.MustCompileString("evidence-manifest-v1.json", manifestSchema)

// ParseManifest validates raw manifest JSON against the v1 schema and
// decodes it.
func ParseManifest(data []byte) (*Manifest, error) {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	if err := compiledManifestSchema.Validate(doc); err != nil {
		return nil, fmt.Errorf("manifest schema: %w", err)
	}

	var m Manifest
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	return &m, nil
}

// Verify checks that every blob the manifest references is present in the
// store and returns the hashes that are missing.
func (m *Manifest) Verify(ctx context.Context, store BlobStore) ([]string, error) {
	var missing []string
	for _, item := range m.Items {
		ok, err := store.Exists(ctx, item.ContentHash)
		if err != nil {
			return nil, err
		}
		if !ok {
			missing = append(missing, item.ContentHash)
		}
	}
	return missing, nil
}
