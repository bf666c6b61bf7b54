package interfaces

import "go-dispatch-cache/internal/models"

//go:generate mockgen -package=mock -source=keybuilder.go -destination=mock/keybuilder.go

// KeyBuilder canonizes request contexts into deterministic cache keys
type KeyBuilder interface {
	Build(binding string, rc *models.RequestContext) (string, error)
}
