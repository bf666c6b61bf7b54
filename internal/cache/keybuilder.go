package cache

import (
	"crypto/md5"
	"encoding/json"
	"errors"
	"fmt"

	"go-dispatch-cache/internal/interfaces"
	"go-dispatch-cache/internal/models"
)

// Ensure KeyBuilderImpl implements interfaces.KeyBuilder
var _ interfaces.KeyBuilder = (*KeyBuilderImpl)(nil)

// KeyBuilderImpl implements the KeyBuilder interface
type KeyBuilderImpl struct{}

// NewKeyBuilder creates a new KeyBuilder instance
func NewKeyBuilder() *KeyBuilderImpl {
	return &KeyBuilderImpl{}
}

// keyMaterial is the part of a request context that identifies its result
type keyMaterial struct {
	Origin   models.OriginKind `json:"origin"`
	Command  any               `json:"command,omitempty"`
	Member   any               `json:"member,omitempty"`
	Segments any               `json:"url_segments,omitempty"`
	Payload  any               `json:"payload,omitempty"`
}

// Build creates a cache key of the form binding:md5(request)
func (kb *KeyBuilderImpl) Build(binding string, rc *models.RequestContext) (string, error) {
	if rc == nil {
		return "", errors.New("request context cannot be nil")
	}

	if binding == "" {
		return "", errors.New("binding name cannot be empty")
	}

	material := keyMaterial{
		Origin:  rc.Origin,
		Payload: rc.Payload,
	}
	if v, ok := rc.Ext(models.ExtCommand); ok {
		material.Command = v
	}
	if v, ok := rc.Ext(models.ExtMember); ok {
		material.Member = v
	}
	if v, ok := rc.Ext(models.ExtURLSegments); ok {
		material.Segments = v
	}

	// encoding/json sorts map keys, so equal requests hash equally
	data, err := json.Marshal(material)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	hasher := md5.New()
	hasher.Write(data)

	return fmt.Sprintf("%s:%x", binding, hasher.Sum(nil)), nil
}
