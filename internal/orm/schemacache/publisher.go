package schemacache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/conduit-lang/modelkit/internal/orm/schema"
)

// ErrFingerprintMismatch is wrapped by MismatchError
var ErrFingerprintMismatch = errors.New("schema fingerprint mismatch")

// MismatchError reports a model whose local compilation differs from the
// published one
type MismatchError struct {
	ClassName string
	Local     string
	Published string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("model %s: local fingerprint %s differs from published %s",
		e.ClassName, short(e.Local), short(e.Published))
}

func (e *MismatchError) Unwrap() error {
	return ErrFingerprintMismatch
}

func short(fp string) string {
	if len(fp) > 12 {
		return fp[:12]
	}
	return fp
}

// Fingerprint returns the hex SHA-256 of the JSON encoding of ms
func Fingerprint(ms *schema.ModelSchema) (string, []byte, error) {
	data, err := json.Marshal(ms)
	if err != nil {
		return "", nil, fmt.Errorf("encoding model %s: %w", ms.ClassName, err)
	}
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:]), data, nil
}

// Publisher stores compiled model schemas and their fingerprints in a Cache
type Publisher struct {
	cache  Cache
	logger *zap.Logger
}

// NewPublisher creates a publisher on cache. A nil logger disables logging.
func NewPublisher(cache Cache, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{cache: cache, logger: logger}
}

func schemaKey(className string) string      { return "schema:" + className }
func fingerprintKey(className string) string { return "fingerprint:" + className }

// Publish stores the JSON and fingerprint of every schema, replacing what was
// published before
func (p *Publisher) Publish(ctx context.Context, schemas []*schema.ModelSchema) error {
	for _, ms := range schemas {
		fp, data, err := Fingerprint(ms)
		if err != nil {
			return err
		}
		if err := p.cache.Set(ctx, schemaKey(ms.ClassName), data, 0); err != nil {
			return fmt.Errorf("publishing model %s: %w", ms.ClassName, err)
		}
		if err := p.cache.Set(ctx, fingerprintKey(ms.ClassName), []byte(fp), 0); err != nil {
			return fmt.Errorf("publishing fingerprint of %s: %w", ms.ClassName, err)
		}
		p.logger.Info("schema published", zap.String("model", ms.ClassName), zap.String("fingerprint", short(fp)))
	}
	return nil
}

// Published returns the published fingerprint and JSON of a model
func (p *Publisher) Published(ctx context.Context, className string) (string, []byte, error) {
	fp, err := p.cache.Get(ctx, fingerprintKey(className))
	if err != nil {
		return "", nil, err
	}
	data, err := p.cache.Get(ctx, schemaKey(className))
	if err != nil {
		return "", nil, err
	}
	return string(fp), data, nil
}

// Verify compares the local schemas against the published ones. Models that
// were never published are published. Every mismatch is returned, joined.
func (p *Publisher) Verify(ctx context.Context, schemas []*schema.ModelSchema) error {
	var mismatches []error
	var unpublished []*schema.ModelSchema

	for _, ms := range schemas {
		local, _, err := Fingerprint(ms)
		if err != nil {
			return err
		}

		published, err := p.cache.Get(ctx, fingerprintKey(ms.ClassName))
		if IsCacheMiss(err) {
			unpublished = append(unpublished, ms)
			continue
		}
		if err != nil {
			return fmt.Errorf("reading fingerprint of %s: %w", ms.ClassName, err)
		}

		if string(published) != local {
			p.logger.Warn("schema fingerprint mismatch",
				zap.String("model", ms.ClassName),
				zap.String("local", short(local)),
				zap.String("published", short(string(published))),
			)
			mismatches = append(mismatches, &MismatchError{
				ClassName: ms.ClassName,
				Local:     local,
				Published: string(published),
			})
		}
	}

	if err := p.Publish(ctx, unpublished); err != nil {
		return err
	}
	return errors.Join(mismatches...)
}
