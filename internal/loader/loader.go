// Package loader ingests USDA rural-investment extracts: it picks the newest
// CSV in the data directory, parses and cleans it, and stores the result as a
// new record generation.
package loader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"ruraldata/internal/amqp"
	"ruraldata/internal/core"
	"ruraldata/internal/log"
	"ruraldata/internal/storage"
)

// Store persists a parsed generation.
type Store interface {
	StoreGeneration(ctx context.Context, gen storage.Generation, records []core.InvestmentRecord) error
}

// Notifier announces a stored generation to interested consumers.
type Notifier interface {
	PublishGenerationLoaded(ctx context.Context, msg *amqp.GenerationLoadedMessage) error
}

// Loader runs one extract ingestion end to end.
type Loader struct {
	store    Store
	notifier Notifier // nil disables notifications
	dataDir  string
	logger   *log.Logger
}

func New(store Store, notifier Notifier, dataDir string, logger *log.Logger) *Loader {
	return &Loader{
		store:    store,
		notifier: notifier,
		dataDir:  dataDir,
		logger:   logger.WithComponent(log.ComponentLoader),
	}
}

// Run ingests the newest extract and returns the stored generation.
func (l *Loader) Run(ctx context.Context) (storage.Generation, error) {
	path, err := FindLatestExtract(l.dataDir)
	if err != nil {
		return storage.Generation{}, err
	}

	f, err := os.Open(path)
	if err != nil {
		return storage.Generation{}, fmt.Errorf("open extract: %w", err)
	}
	defer f.Close()

	records, err := ParseExtract(f)
	if err != nil {
		return storage.Generation{}, fmt.Errorf("parse extract %s: %w", filepath.Base(path), err)
	}

	gen := storage.Generation{
		ID:          uuid.NewString(),
		SourceFile:  filepath.Base(path),
		RecordCount: len(records),
		LoadedAt:    time.Now(),
	}
	if err := l.store.StoreGeneration(ctx, gen, records); err != nil {
		return storage.Generation{}, fmt.Errorf("store generation: %w", err)
	}

	l.logger.InfoContext(ctx, "Extract ingested",
		log.FieldGeneration, gen.ID,
		log.FieldSourceFile, gen.SourceFile,
		log.FieldRecordCount, len(records))

	if l.notifier != nil {
		msg := amqp.NewGenerationLoadedMessage(gen.ID, gen.SourceFile, len(records))
		if err := l.notifier.PublishGenerationLoaded(ctx, msg); err != nil {
			// The generation is stored; notification failure is not fatal.
			l.logger.WarnContext(ctx, "Failed to publish generation notification",
				log.FieldError, err,
				log.FieldGeneration, gen.ID)
		}
	}

	return gen, nil
}
