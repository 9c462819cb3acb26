package main

import (
	"log/slog"

	"tunefetch/internal/config"
	"tunefetch/internal/download"
	"tunefetch/internal/extraction"
	"tunefetch/internal/inspect"
	"tunefetch/internal/organizer"
	"tunefetch/internal/replaygain"
	"tunefetch/internal/stage"
	"tunefetch/internal/tagging"
	"tunefetch/internal/workflow"
)

// buildPipeline wires the stage handlers. Remote items are downloaded,
// extracted, tagged, normalized and filed into the library; local items are
// inspected, tagged and normalized in place.
func buildPipeline(cfg *config.Config, logger *slog.Logger) workflow.Pipeline {
	tagger := tagging.NewTagger(cfg, logger)
	normalizer := replaygain.NewNormalizer(cfg, logger)
	return workflow.Pipeline{
		Remote: []stage.Handler{
			download.NewDownloader(cfg, logger),
			extraction.NewExtractor(cfg, logger),
			tagger,
			normalizer,
			organizer.NewOrganizer(cfg, logger),
		},
		Local: []stage.Handler{
			inspect.NewInspector(cfg, logger),
			tagger,
			normalizer,
		},
	}
}
