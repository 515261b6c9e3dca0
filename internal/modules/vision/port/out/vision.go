package out

import (
	"context"

	"nightwatch/internal/modules/vision/domain"
)

type ManifestStore interface {
	Load(ctx context.Context) ([]domain.Manifest, error)
}

type Host interface {
	CheckLifecycle(ctx context.Context, manifest domain.Manifest) error
	GetMetadata(ctx context.Context, manifest domain.Manifest) (domain.Metadata, error)
	Classify(ctx context.Context, manifest domain.Manifest, req domain.Request) (domain.Result, error)
	Close()
}
