// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package settings

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// VectorStoreKind selects the vector store backend variant.
type VectorStoreKind int

const (
	VectorStoreInMemory VectorStoreKind = iota
	VectorStorePinecone
)

func (k VectorStoreKind) String() string {
	switch k {
	case VectorStoreInMemory:
		return "In-memory"
	case VectorStorePinecone:
		return "Pinecone DB"
	default:
		return fmt.Sprintf("VectorStoreKind(%d)", int(k))
	}
}

// ParseVectorStoreKind parses the configuration spelling of a kind.
func ParseVectorStoreKind(s string) (VectorStoreKind, error) {
	switch s {
	case "in-memory", "memory", "inmemory":
		return VectorStoreInMemory, nil
	case "pinecone":
		return VectorStorePinecone, nil
	default:
		return 0, fmt.Errorf("unknown vector store type %q (want in-memory or pinecone)", s)
	}
}

func (k VectorStoreKind) key() string {
	switch k {
	case VectorStorePinecone:
		return "pinecone"
	default:
		return "in-memory"
	}
}

// MarshalYAML writes the kind by name.
func (k VectorStoreKind) MarshalYAML() (interface{}, error) {
	return k.key(), nil
}

// UnmarshalYAML reads the kind by name.
func (k *VectorStoreKind) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := ParseVectorStoreKind(s)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// PineconeProps configures a Pinecone index.
type PineconeProps struct {
	APIKey      string `yaml:"api_key" json:"api_key"`
	Environment string `yaml:"environment" json:"environment"`
	IndexName   string `yaml:"index_name" json:"index_name"`
}

// VectorStore is a configured vector store. Pinecone is set only for
// VectorStorePinecone.
type VectorStore struct {
	ID       string          `yaml:"id" json:"id"`
	Kind     VectorStoreKind `yaml:"type" json:"type"`
	Pinecone *PineconeProps  `yaml:"pinecone,omitempty" json:"pinecone,omitempty"`
}

// InMemoryVectorStore builds an in-memory store.
func InMemoryVectorStore(id string) VectorStore {
	return VectorStore{ID: id, Kind: VectorStoreInMemory}
}

// PineconeVectorStore builds a Pinecone store.
func PineconeVectorStore(id string, props PineconeProps) VectorStore {
	return VectorStore{ID: id, Kind: VectorStorePinecone, Pinecone: &props}
}

// Validate checks that the payload matches the kind.
func (v VectorStore) Validate() error {
	if v.ID == "" {
		return fmt.Errorf("vector store id must not be empty")
	}
	switch v.Kind {
	case VectorStoreInMemory:
		if v.Pinecone != nil {
			return fmt.Errorf("vector store '%s': in-memory store takes no pinecone settings", v.ID)
		}
	case VectorStorePinecone:
		if v.Pinecone == nil || v.Pinecone.IndexName == "" {
			return fmt.Errorf("vector store '%s': pinecone index name is required", v.ID)
		}
	default:
		return fmt.Errorf("vector store '%s': unknown type %d", v.ID, int(v.Kind))
	}
	return nil
}

// Prop is a displayed vector store property.
type Prop struct {
	Name  string
	Value string
}

// Props lists the store's properties for display, type first.
func (v VectorStore) Props() []Prop {
	switch v.Kind {
	case VectorStorePinecone:
		p := PineconeProps{}
		if v.Pinecone != nil {
			p = *v.Pinecone
		}
		return []Prop{
			{"Type", "Pinecone"},
			{"API key", p.APIKey},
			{"Environment", p.Environment},
			{"Index name", p.IndexName},
		}
	default:
		return []Prop{{"Type", "In-memory"}}
	}
}
